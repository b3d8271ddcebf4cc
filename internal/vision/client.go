package vision

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

// Requester is the part of *nats.Conn the client needs.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// RemoteError carries the error text a vision service replied with.
type RemoteError struct {
	RequestID string
	Message   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("vision: request %s failed remotely: %s", e.RequestID, e.Message)
}

// Client sends SolveRequests to a vision service.
type Client struct {
	conn    Requester
	subject string
	logger  *zap.Logger
}

func NewClient(conn Requester, subject string, logger *zap.Logger) *Client {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Client{conn: conn, subject: subject, logger: logger.Named("vision.client")}
}

// Locate asks the service for the slot of original/overlay. piece may be nil.
// The deadline of ctx bounds the whole round trip.
func (c *Client) Locate(ctx context.Context, original, overlay, piece *imaging.Image) (*schemas.SolveResponse, error) {
	req := schemas.SolveRequest{RequestID: uuid.NewString()}
	var err error
	if req.Original, err = imaging.EncodeBase64PNG(original); err != nil {
		return nil, fmt.Errorf("vision: encode original: %w", err)
	}
	if req.Overlay, err = imaging.EncodeBase64PNG(overlay); err != nil {
		return nil, fmt.Errorf("vision: encode overlay: %w", err)
	}
	if piece != nil {
		if req.Piece, err = imaging.EncodeBase64PNG(piece); err != nil {
			return nil, fmt.Errorf("vision: encode piece: %w", err)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("vision: encode request: %w", err)
	}

	c.logger.Debug("Sending solve request", zap.String("request_id", req.RequestID), zap.Int("bytes", len(payload)))
	msg, err := c.conn.RequestWithContext(ctx, c.subject, payload)
	if err != nil {
		return nil, fmt.Errorf("vision: request %s: %w", req.RequestID, err)
	}

	var resp schemas.SolveResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("vision: decode response: %w", err)
	}
	if !resp.Success {
		return &resp, &RemoteError{RequestID: req.RequestID, Message: resp.Error}
	}
	return &resp, nil
}
