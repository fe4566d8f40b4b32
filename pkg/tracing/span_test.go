package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
)

func TestChildSpansInheritTraceID(t *testing.T) {
	ctx, root := Start(context.Background(), "chat.handle", "m-1")
	childCtx, child := StartChild(ctx, "brain.process")
	child.SetAttr("phrases", 2)
	child.SetAttr("phrases", 3)
	child.End()
	root.End()

	assert.Equal(t, "m-1", child.TraceID())
	assert.Same(t, child, FromContext(childCtx))
	require.Len(t, root.Children(), 1)
	v, ok := root.Children()[0].Attr("phrases")
	require.True(t, ok)
	assert.EqualValues(t, 3, v)
	assert.Positive(t, root.Elapsed())
}

func TestStartChildWithoutParent(t *testing.T) {
	_, span := StartChild(context.Background(), "orphan")
	assert.Empty(t, span.TraceID())
	assert.Nil(t, FromContext(context.Background()))
}

func TestEndKeepsFirstDuration(t *testing.T) {
	_, span := Start(context.Background(), "reply.send", "m-3")
	span.End()
	first := span.Elapsed()
	span.End()
	assert.Equal(t, first, span.Elapsed())
}

func TestLogWritesWholeTree(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, "debug", "text")

	ctx, root := Start(context.Background(), "chat.handle", "m-2")
	_, child := StartChild(ctx, "history.append")
	child.SetAttr("lines", 4)
	child.End()
	root.End()
	root.Log(log)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "msg=span"))
	assert.Less(t, strings.Index(out, "span=chat.handle"), strings.Index(out, "span=history.append"))
	assert.Contains(t, out, "trace_id=m-2")
	assert.Contains(t, out, "depth=1 lines=4")
}
