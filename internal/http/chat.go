package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/paceworks/buildd/internal/build"
	"github.com/paceworks/buildd/internal/intent"
	"github.com/paceworks/buildd/internal/status"
)

// ChatRequest is the request body for POST /api/v1/chat. Exactly one of
// Message (classify and act) or BuildID (poll an existing build) is used;
// BuildID wins when both are set.
type ChatRequest struct {
	Message string `json:"message,omitempty"`
	BuildID string `json:"build_id,omitempty"`
}

// ChatMetadata carries machine-readable build state alongside the
// conversational reply.
type ChatMetadata struct {
	BuildID     string `json:"build_id,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
	Phase       string `json:"phase,omitempty"`
	Progress    int    `json:"progress"`
	RepoURL     string `json:"repo_url,omitempty"`
}

// ChatReply is the response body for POST /api/v1/chat.
type ChatReply struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Metadata  *ChatMetadata `json:"metadata,omitempty"`
}

func newChatReply(content string, metadata *ChatMetadata) ChatReply {
	return ChatReply{
		ID:        "msg_" + uuid.New().String(),
		Role:      "assistant",
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// handleChat detects the intent of a chat message and acts on it, or polls an
// existing build into a conversational status message.
func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid chat request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.BuildID != "" {
		return s.chatPollBuild(c, req.BuildID)
	}

	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	detected := intent.Classify(req.Message)

	switch detected.Kind {
	case intent.KindBuild:
		b, err := s.executor.StartBuild(build.Config{
			ProjectName: detected.ProjectName,
			Description: detected.Description,
		})
		if err != nil {
			s.logger.Error("failed to start build from chat", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to start build")
		}

		reply := newChatReply(
			fmt.Sprintf("Got it! I'm spinning up **%s**. I'll research, plan, code, test, and deploy it for you. Track progress with the build ID below.", b.Config.ProjectName),
			&ChatMetadata{
				BuildID:     b.ID,
				ProjectName: b.Config.ProjectName,
				Phase:       string(build.PhaseResearching),
				Progress:    0,
			},
		)
		return c.JSON(http.StatusOK, reply)

	case intent.KindResearch:
		reply := newChatReply(
			fmt.Sprintf("Starting research on: *%s*. I'll compile findings and update you shortly.", detected.Topic),
			nil,
		)
		return c.JSON(http.StatusOK, reply)

	default:
		reply := newChatReply(
			fmt.Sprintf("You said:\n\n> %s\n\nI can **build projects**, **research topics**, or answer questions. What would you like me to do?", req.Message),
			nil,
		)
		return c.JSON(http.StatusOK, reply)
	}
}

// chatPollBuild phrases the current state of an existing build.
func (s *Server) chatPollBuild(c echo.Context, buildID string) error {
	b, err := s.store.Get(buildID)
	if err != nil {
		if errors.Is(err, build.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "build not found")
		}
		s.logger.Error("failed to get build", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get build")
	}

	var content string
	phase := string(build.PhaseComplete)

	switch b.Status {
	case build.StatusComplete:
		content = fmt.Sprintf("Project **%s** is complete! 🚀\nRepo: %s", b.Config.ProjectName, b.RepoURL)
	case build.StatusError:
		failedPhase := "unknown"
		if failed, ok := b.FailedPhase(); ok {
			failedPhase = string(failed.Phase)
			phase = failedPhase
		}
		content = fmt.Sprintf("Build encountered an error during the %s phase.", failedPhase)
	default:
		if active, ok := b.ActivePhase(); ok {
			phase = string(active)
			content = fmt.Sprintf("Currently %s... hang tight.", active)
		} else {
			phase = "processing"
			content = "Currently processing... hang tight."
		}
	}

	reply := newChatReply(content, &ChatMetadata{
		BuildID:     b.ID,
		ProjectName: b.Config.ProjectName,
		Phase:       phase,
		Progress:    status.Progress(b),
		RepoURL:     b.RepoURL,
	})
	return c.JSON(http.StatusOK, reply)
}
