package http

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paceworks/buildd/internal/build"
)

func decodeChatReply(t *testing.T, body []byte) ChatReply {
	t.Helper()
	var reply ChatReply
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.True(t, len(reply.ID) > len("msg_"))
	assert.Equal(t, "assistant", reply.Role)
	assert.False(t, reply.Timestamp.IsZero())
	return reply
}

func TestChat_BuildIntent(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/v1/chat",
		`{"message": "Build me a portfolio site"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	assert.Contains(t, reply.Content, "**portfolio-site**")

	require.NotNil(t, reply.Metadata)
	assert.NotEmpty(t, reply.Metadata.BuildID)
	assert.Equal(t, "portfolio-site", reply.Metadata.ProjectName)
	assert.Equal(t, "researching", reply.Metadata.Phase)
	assert.Equal(t, 0, reply.Metadata.Progress)

	// The build actually started.
	b, err := store.Get(reply.Metadata.BuildID)
	require.NoError(t, err)
	assert.Equal(t, "portfolio-site", b.Config.ProjectName)
}

func TestChat_ResearchIntent(t *testing.T) {
	s, store := newTestServer(t)

	// Research replies are conversational only, no build is registered.
	rec := doJSON(s, http.MethodPost, "/api/v1/chat",
		`{"message": "what is the latest on quantum computing"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	assert.Contains(t, reply.Content, "Starting research on")
	assert.Nil(t, reply.Metadata)
	assert.Empty(t, store.List())
}

func TestChat_GeneralIntent(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/v1/chat", `{"message": "hello there"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	assert.Contains(t, reply.Content, "hello there")
	assert.Contains(t, reply.Content, "build projects")
	assert.Nil(t, reply.Metadata)
	assert.Empty(t, store.List())
}

func TestChat_MissingMessage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/v1/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_PollRunningBuild(t *testing.T) {
	s, store := newTestServer(t)

	b := build.New(build.Config{ProjectName: "demo", Description: "d"})
	require.NoError(t, b.Advance(build.PhaseResearching))
	require.NoError(t, store.Create(b))

	rec := doJSON(s, http.MethodPost, "/api/v1/chat", `{"build_id": "`+b.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	assert.Equal(t, "Currently researching... hang tight.", reply.Content)
	require.NotNil(t, reply.Metadata)
	assert.Equal(t, "researching", reply.Metadata.Phase)
	assert.Equal(t, 0, reply.Metadata.Progress)
}

func TestChat_PollCompleteBuild(t *testing.T) {
	s, store := newTestServer(t)

	b := build.New(build.Config{ProjectName: "demo", Description: "d"})
	for _, phase := range build.AllPhases() {
		require.NoError(t, b.Advance(phase))
		require.NoError(t, b.CompletePhase(phase, ""))
	}
	b.RepoURL = "https://example.test/demo"
	require.NoError(t, store.Create(b))

	rec := doJSON(s, http.MethodPost, "/api/v1/chat", `{"build_id": "`+b.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	assert.Contains(t, reply.Content, "complete! 🚀")
	assert.Contains(t, reply.Content, "https://example.test/demo")
	require.NotNil(t, reply.Metadata)
	assert.Equal(t, 100, reply.Metadata.Progress)
	assert.Equal(t, "https://example.test/demo", reply.Metadata.RepoURL)
}

func TestChat_PollFailedBuild(t *testing.T) {
	s, store := newTestServer(t)

	b := build.New(build.Config{ProjectName: "demo", Description: "d"})
	require.NoError(t, b.Advance(build.PhaseResearching))
	require.NoError(t, b.FailPhase(build.PhaseResearching, "boom"))
	require.NoError(t, store.Create(b))

	rec := doJSON(s, http.MethodPost, "/api/v1/chat", `{"build_id": "`+b.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	assert.Equal(t, "Build encountered an error during the researching phase.", reply.Content)
	require.NotNil(t, reply.Metadata)
	assert.Equal(t, "researching", reply.Metadata.Phase)
}

func TestChat_PollUnknownBuild(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/v1/chat", `{"build_id": "nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_BuildIDWinsOverMessage(t *testing.T) {
	s, store := newTestServer(t)

	b := build.New(build.Config{ProjectName: "demo", Description: "d"})
	require.NoError(t, store.Create(b))

	rec := doJSON(s, http.MethodPost, "/api/v1/chat",
		`{"message": "build me another thing", "build_id": "`+b.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	require.NotNil(t, reply.Metadata)
	assert.Equal(t, b.ID, reply.Metadata.BuildID)
	assert.Len(t, store.List(), 1, "polling must not start a build")
}

func TestChat_BuildFromChatRunsToCompletion(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/api/v1/chat",
		`{"message": "build a todo app"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	reply := decodeChatReply(t, rec.Body.Bytes())
	require.NotNil(t, reply.Metadata)

	require.Eventually(t, func() bool {
		b, err := store.Get(reply.Metadata.BuildID)
		return err == nil && b.Status == build.StatusComplete
	}, 5*time.Second, 10*time.Millisecond)
}
