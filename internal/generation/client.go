package generation

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	maxLineBytes    = 1024 * 1024
	maxPendingBytes = 4 * 1024 * 1024
)

// HTTPGenerator calls the remote generation endpoint. The endpoint answers
// either with a single JSON body or with an event stream of
// `data: {"sections": [...]}` lines terminated by `data: [DONE]`.
type HTTPGenerator struct {
	endpoint string
	apiKey   string
	client   *resty.Client
	logger   *zap.Logger
}

func NewHTTPGenerator(endpoint, apiKey string, logger *zap.Logger) *HTTPGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGenerator{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   apiKey,
		client:   resty.New(),
		logger:   logger,
	}
}

func (g *HTTPGenerator) Generate(ctx context.Context, in Input) (<-chan Snapshot, error) {
	if g.endpoint == "" {
		return nil, ErrNotConfigured
	}

	req := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "text/event-stream, application/json").
		SetBody(in).
		SetDoNotParseResponse(true)
	if g.apiKey != "" {
		req.SetAuthToken(g.apiKey)
	}

	resp, err := req.Post(g.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	body := resp.RawBody()
	if resp.IsError() {
		defer body.Close()
		detail, _ := io.ReadAll(io.LimitReader(body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode(), strings.TrimSpace(string(detail)))
	}

	out := make(chan Snapshot)
	jsonBody := strings.Contains(strings.ToLower(resp.Header().Get("Content-Type")), "application/json")
	go func() {
		defer close(out)
		defer body.Close()

		var streamErr error
		if jsonBody {
			streamErr = readJSONBody(ctx, body, out)
		} else {
			streamErr = readEventStream(ctx, body, out)
		}
		if streamErr != nil {
			g.logger.Warn("generation stream ended early", zap.Error(streamErr))
		}
	}()
	return out, nil
}

func readJSONBody(ctx context.Context, body io.Reader, out chan<- Snapshot) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read generation body: %w", err)
	}
	snapshot, ok := decodeSnapshot(string(data))
	if !ok {
		return fmt.Errorf("decode generation body: no sections")
	}
	return send(ctx, out, snapshot)
}

// readEventStream emits one snapshot per parseable data line. Lines that do not
// parse on their own are accumulated until the concatenation does.
func readEventStream(ctx context.Context, body io.Reader, out chan<- Snapshot) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var pending strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return nil
		}

		snapshot, ok := decodeSnapshot(data)
		if !ok {
			pending.WriteString(data)
			snapshot, ok = decodeSnapshot(pending.String())
			if !ok {
				if pending.Len() > maxPendingBytes {
					pending.Reset()
				}
				continue
			}
		}
		pending.Reset()

		if err := send(ctx, out, snapshot); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func decodeSnapshot(data string) (Snapshot, bool) {
	var envelope struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil || len(envelope.Sections) == 0 {
		return Snapshot{}, false
	}
	var snapshot Snapshot
	if err := json.Unmarshal(envelope.Sections, &snapshot.Sections); err != nil {
		return Snapshot{}, false
	}
	return snapshot, true
}

func send(ctx context.Context, out chan<- Snapshot, snapshot Snapshot) error {
	select {
	case out <- snapshot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
