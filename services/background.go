package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"wardrobeapi/config"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// BackgroundRemovalResult carries either transparent PNG bytes (Removed) or
// the untouched input.
type BackgroundRemovalResult struct {
	Data    []byte
	Removed bool
	Engine  string
}

type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, data []byte) BackgroundRemovalResult
}

// MattingEngine is one concrete way of cutting the garment out. It must
// return PNG bytes with an alpha channel.
type MattingEngine interface {
	Name() string
	Matte(ctx context.Context, data []byte) ([]byte, error)
}

// MattingChain tries each engine in order and never fails upward: if every
// engine fails the original bytes come back with Removed=false.
type MattingChain struct {
	Engines []MattingEngine
	Timeout time.Duration
}

func (m *MattingChain) RemoveBackground(ctx context.Context, data []byte) BackgroundRemovalResult {
	for _, engine := range m.Engines {
		out, err := m.run(ctx, engine, data)
		if err != nil {
			log.Printf("[Matting] %s failed: %v", engine.Name(), err)
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("failure_type", "matting")
				scope.SetTag("engine", engine.Name())
				sentry.CaptureException(err)
			})
			continue
		}
		return BackgroundRemovalResult{Data: out, Removed: true, Engine: engine.Name()}
	}
	return BackgroundRemovalResult{Data: data, Removed: false}
}

func (m *MattingChain) run(ctx context.Context, engine MattingEngine, data []byte) (out []byte, err error) {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("matting panic: %v", r)
		}
	}()
	out, err = engine.Matte(ctx, data)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(out, pngMagic) {
		return nil, fmt.Errorf("engine %s did not return png", engine.Name())
	}
	return out, nil
}

// RembgHTTPEngine calls a rembg server (`rembg s`) with alpha matting on.
type RembgHTTPEngine struct {
	BaseURL string
	Client  *http.Client
}

func NewRembgHTTPEngine(baseURL string) *RembgHTTPEngine {
	return &RembgHTTPEngine{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
	}
}

func (r *RembgHTTPEngine) Name() string { return "rembg" }

func (r *RembgHTTPEngine) Matte(ctx context.Context, data []byte) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "upload")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("copy form file: %w", err)
	}
	_ = writer.WriteField("a", "true")
	_ = writer.WriteField("om", "false")
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/remove", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rembg returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	return respBody, nil
}

// NewBackgroundRemover wires the configured engines: the rembg server first
// when REMBG_URL is set, then local matting.
func NewBackgroundRemover(cfg *config.Config) *MattingChain {
	chain := &MattingChain{Timeout: cfg.Timeouts.Matting}
	if cfg.Matting.RembgURL != "" {
		chain.Engines = append(chain.Engines, NewRembgHTTPEngine(cfg.Matting.RembgURL))
	}
	if cfg.Matting.LocalMatting {
		chain.Engines = append(chain.Engines, NewLocalMattingEngine())
	}
	return chain
}
