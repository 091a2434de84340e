package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"signbridge/metrics"
)

const (
	nniPath  = "nni"
	pingPath = "ping"

	// ProgramNatServ is the legacy dispatcher program every business call
	// goes through.
	ProgramNatServ = "NATSERVJ"
	// FuncFinalizeDesignation marks a designation final after signing.
	FuncFinalizeDesignation = "FinalizeDesignation"

	signatureDateFormat = "01-02-2006"
)

// ErrTransport signals a network failure or non-2xx gateway response.
var ErrTransport = errors.New("legacy: transport failure")

// Result is the tagged outcome of a gateway call. A nil error from Call with
// an empty Body means the legacy side completed but said nothing, which is a
// distinct condition from a transport failure.
type Result struct {
	Body       string
	StatusCode int
}

// Empty reports whether the legacy side returned no data.
func (r Result) Empty() bool {
	return strings.TrimSpace(r.Body) == ""
}

// Bridge issues program/function/payload calls to the legacy gateway over a
// form-encoded HTTP transport. The bridge is stateless per call; the injected
// client is shared and must be safe for concurrent use.
type Bridge struct {
	client  *http.Client
	logger  *zap.Logger
	env     string
	lib     string
	nniURL  string
	pingURL string
}

// NewBridge constructs a Bridge against the gateway base URI. client may be
// nil, in which case a default client with a bounded timeout is used.
func NewBridge(baseURI, environment, library string, client *http.Client, logger *zap.Logger) (*Bridge, error) {
	base, err := url.Parse(baseURI)
	if err != nil {
		return nil, fmt.Errorf("legacy: parse base uri: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		client:  client,
		logger:  logger,
		env:     environment,
		lib:     library,
		nniURL:  base.JoinPath(nniPath).String(),
		pingURL: base.JoinPath(pingPath).String(),
	}, nil
}

// Call posts the {env, lib, pgm, func, data} envelope to the gateway and
// returns the raw response body. The body is never schema-validated here.
func (b *Bridge) Call(ctx context.Context, program, function, data string) (Result, error) {
	form := url.Values{
		"env":  {b.env},
		"lib":  {b.lib},
		"pgm":  {program},
		"func": {function},
		"data": {data},
	}

	b.logger.Info("legacy call",
		zap.String("url", b.nniURL),
		zap.String("pgm", program),
		zap.String("func", function),
		zap.String("data", data),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.nniURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("legacy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.client.Do(req)
	if err != nil {
		metrics.LegacyCalls.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: %s %s: %v", ErrTransport, program, function, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.LegacyCalls.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.LegacyCalls.WithLabelValues("error").Inc()
		b.logger.Error("legacy gateway returned non-2xx",
			zap.String("pgm", program),
			zap.String("func", function),
			zap.Int("status", resp.StatusCode),
		)
		return Result{}, fmt.Errorf("%w: %s %s: status %d", ErrTransport, program, function, resp.StatusCode)
	}

	result := Result{Body: string(body), StatusCode: resp.StatusCode}
	if result.Empty() {
		metrics.LegacyCalls.WithLabelValues("empty").Inc()
	} else {
		metrics.LegacyCalls.WithLabelValues("ok").Inc()
	}

	b.logger.Info("legacy response",
		zap.String("pgm", program),
		zap.String("func", function),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(result.Body)),
	)

	return result, nil
}

// natServCall dispatches a business function through the NATSERVJ program.
func (b *Bridge) natServCall(ctx context.Context, function, data string) (Result, error) {
	return b.Call(ctx, ProgramNatServ, function, data)
}

type designationUpdateRequest struct {
	DesignationID int64  `json:"designationid"`
	Status        string `json:"status"`
	SignatureDate string `json:"signatureDate"`
}

// DesignationUpdate notifies the legacy side that the designation is final.
// The response is opaque; callers log it and move on. A failure here must not
// undo work already completed by the caller.
func (b *Bridge) DesignationUpdate(ctx context.Context, designationID int64) (Result, error) {
	payload, err := json.Marshal(designationUpdateRequest{
		DesignationID: designationID,
		Status:        "final",
		SignatureDate: time.Now().Format(signatureDateFormat),
	})
	if err != nil {
		return Result{}, fmt.Errorf("legacy: marshal designation update: %w", err)
	}

	res, err := b.natServCall(ctx, FuncFinalizeDesignation, string(payload))
	if err != nil {
		return Result{}, err
	}

	b.logger.Info("designation finalized",
		zap.Int64("designation_id", designationID),
		zap.String("response", res.Body),
	)
	return res, nil
}

// Ping checks gateway reachability.
func (b *Bridge) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.pingURL, nil)
	if err != nil {
		return fmt.Errorf("legacy: build ping request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: ping: status %d", ErrTransport, resp.StatusCode)
	}
	return nil
}
