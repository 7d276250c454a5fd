package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

const version = "1.0.0"

// Session is the pipeline exposed to MCP clients.
type Session interface {
	ProcessVideo(ctx context.Context, rawURL string) (domain.VideoStatus, error)
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	Status() domain.VideoStatus
}

// Server exposes the video question-answering pipeline as Model Context
// Protocol tools over streamable HTTP.
type Server struct {
	mcp  *mcp.Server
	port string
	http *http.Server
}

// NewServer creates a new MCP server and registers its tools.
func NewServer(session Session, name, port string) *Server {
	s := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	registerTools(s, session)
	return &Server{mcp: s, port: port}
}

// Start serves MCP requests on the configured port until Shutdown.
func (s *Server) Start() error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	s.http = &http.Server{
		Addr:              ":" + s.port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("MCP server starting", "port", s.port)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

type processInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, shorts or embed form)"`
}

type askInput struct {
	Question string `json:"question" jsonschema:"question about the processed video"`
}

type statusInput struct{}

type statusOutput struct {
	Ready          bool   `json:"ready"`
	VideoID        string `json:"video_id,omitempty"`
	LanguageCode   string `json:"language_code,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
	Passages       int    `json:"passages"`
	IngestedAt     string `json:"ingested_at,omitempty"`
}

func toStatusOutput(st domain.VideoStatus) statusOutput {
	out := statusOutput{
		Ready:          st.Ready,
		VideoID:        st.VideoID,
		LanguageCode:   st.LanguageCode,
		SourceLanguage: st.SourceLanguage,
		Passages:       st.Passages,
	}
	if !st.IngestedAt.IsZero() {
		out.IngestedAt = st.IngestedAt.Format(time.RFC3339)
	}
	return out
}

type source struct {
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

type askOutput struct {
	Answer  string   `json:"answer"`
	Sources []source `json:"sources"`
}

func registerTools(server *mcp.Server, session Session) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_video",
		Description: "Fetch the transcript of a YouTube video, translate it if needed and index it for questions. Replaces the previously processed video.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in processInput) (*mcp.CallToolResult, statusOutput, error) {
		if in.URL == "" {
			return nil, statusOutput{}, errors.New("url is required")
		}
		status, err := session.ProcessVideo(ctx, in.URL)
		if err != nil {
			return nil, statusOutput{}, err
		}
		return nil, toStatusOutput(status), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "answer_question",
		Description: "Answer a question using only the transcript of the processed video.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in askInput) (*mcp.CallToolResult, askOutput, error) {
		answer, err := session.Ask(ctx, in.Question)
		if err != nil {
			return nil, askOutput{}, err
		}
		out := askOutput{Answer: answer.Text, Sources: make([]source, 0, len(answer.Sources))}
		for _, sp := range answer.Sources {
			out.Sources = append(out.Sources, source{Index: sp.Index, Text: sp.Text, Similarity: sp.Similarity})
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: answer.Text}},
		}, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_status",
		Description: "Report which video, if any, is ready for questions.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ statusInput) (*mcp.CallToolResult, statusOutput, error) {
		return nil, toStatusOutput(session.Status()), nil
	})
}
