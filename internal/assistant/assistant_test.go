package assistant

import (
	"context"
	"fmt"
	"testing"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/mohammad-safakhou/prizm/internal/oracle/oracletest"
	"github.com/mohammad-safakhou/prizm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// history alternates user and assistant messages starting with the user.
func history(n int) []models.Message {
	out := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Message{ID: i + 1, Content: fmt.Sprintf("m%d", i+1), IsAiAssistant: i%2 == 1})
	}
	return out
}

func TestWindowKeepsMostRecentOldestFirst(t *testing.T) {
	turns := Window(history(15), 10)
	require.Len(t, turns, 10)
	assert.Equal(t, oracle.Turn{Role: oracle.RoleAssistant, Content: "m6"}, turns[0])
	assert.Equal(t, oracle.Turn{Role: oracle.RoleUser, Content: "m7"}, turns[1])
	assert.Equal(t, oracle.Turn{Role: oracle.RoleUser, Content: "m15"}, turns[9])
}

func TestWindowShortHistory(t *testing.T) {
	turns := Window(history(3), 10)
	assert.Len(t, turns, 3)
	assert.Empty(t, Window(nil, 10))
}

func TestRespondSendsWindowAndReturnsReply(t *testing.T) {
	stub := &oracletest.Stub{Reply: "PRIZM here. Turn off the water main."}
	a := New(stub, nil)

	got := a.Respond(context.Background(), history(15))
	assert.Equal(t, "PRIZM here. Turn off the water main.", got)

	req := stub.Last()
	assert.Equal(t, "chat", req.Op)
	assert.Contains(t, req.System, "home improvement")
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Turns, 10)
	assert.Equal(t, "m6", req.Turns[0].Content)
	assert.Equal(t, "m15", req.Turns[9].Content)
}

func TestRespondFallbackOnOracleError(t *testing.T) {
	stub := &oracletest.Stub{Err: &oracle.Error{Provider: "stub", Kind: oracle.KindTransport}}
	a := New(stub, nil)
	assert.Equal(t, FallbackReply, a.Respond(context.Background(), history(2)))
}

func TestRespondFallbackOnBlankReply(t *testing.T) {
	stub := &oracletest.Stub{Reply: "  \n"}
	a := New(stub, nil, WithFallbackReply("try later"))
	assert.Equal(t, "try later", a.Respond(context.Background(), history(1)))
}

func TestRespondEmptyHistorySkipsOracle(t *testing.T) {
	stub := &oracletest.Stub{Reply: "hello"}
	a := New(stub, nil)
	assert.Equal(t, FallbackReply, a.Respond(context.Background(), nil))
	assert.Equal(t, 0, stub.Calls())
}

func TestRespondCustomWindow(t *testing.T) {
	stub := &oracletest.Stub{Reply: "ok"}
	a := New(stub, nil, WithWindowSize(3), WithMaxTokens(64))
	a.Respond(context.Background(), history(7))
	req := stub.Last()
	require.Len(t, req.Turns, 3)
	assert.Equal(t, "m5", req.Turns[0].Content)
	assert.Equal(t, 64, req.MaxTokens)
}
