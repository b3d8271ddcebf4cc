// Package vision exposes slot location as a NATS request/reply service.
package vision

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
	"github.com/xkilldash9x/slidejig/internal/imaging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultSubject = "jobs.captcha.slider"
	DefaultQueue   = "vision"
)

// Subscriber is the part of *nats.Conn the service needs.
type Subscriber interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Service answers SolveRequests with the slot (and optionally piece) centroid.
type Service struct {
	pipeline *imaging.Pipeline
	subject  string
	queue    string
	logger   *zap.Logger
}

func NewService(pipeline *imaging.Pipeline, subject, queue string, logger *zap.Logger) *Service {
	if subject == "" {
		subject = DefaultSubject
	}
	if queue == "" {
		queue = DefaultQueue
	}
	return &Service{
		pipeline: pipeline,
		subject:  subject,
		queue:    queue,
		logger:   logger.Named("vision"),
	}
}

// Serve subscribes in the queue group and blocks until ctx is done, then drains
// the subscription so in-flight requests still get a reply.
func (s *Service) Serve(ctx context.Context, conn Subscriber) error {
	sub, err := conn.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		if err := msg.Respond(s.Handle(msg.Data)); err != nil {
			s.logger.Warn("Failed to send reply", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("vision: subscribe %q: %w", s.subject, err)
	}
	s.logger.Info("Vision service listening", zap.String("subject", s.subject), zap.String("queue", s.queue))

	<-ctx.Done()
	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("vision: drain: %w", err)
	}
	s.logger.Info("Vision service stopped")
	return nil
}

// Handle decodes one request payload and returns the encoded response. It never
// fails; problems are reported in the response body.
func (s *Service) Handle(data []byte) []byte {
	var req schemas.SolveRequest
	resp := schemas.SolveResponse{}
	if err := json.Unmarshal(data, &req); err != nil {
		resp.Error = fmt.Sprintf("decode request: %v", err)
		return s.encode(resp)
	}
	resp = s.solve(req)
	return s.encode(resp)
}

func (s *Service) solve(req schemas.SolveRequest) schemas.SolveResponse {
	resp := schemas.SolveResponse{RequestID: req.RequestID}
	log := s.logger.With(zap.String("request_id", req.RequestID))

	original, err := imaging.DecodeBase64(req.Original)
	if err != nil {
		resp.Error = fmt.Sprintf("original: %v", err)
		return resp
	}
	overlay, err := imaging.DecodeBase64(req.Overlay)
	if err != nil {
		resp.Error = fmt.Sprintf("overlay: %v", err)
		return resp
	}

	slot, err := s.pipeline.LocateSlot(original, overlay)
	if err != nil {
		if slot != nil {
			resp.DiffCount = slot.DiffCount
		}
		log.Debug("Slot location failed", zap.Error(err))
		resp.Error = err.Error()
		return resp
	}
	resp.XOffset = slot.Centroid.X
	resp.SlotX = slot.Centroid.X
	resp.SlotY = slot.Centroid.Y
	resp.DiffCount = slot.DiffCount
	resp.Confidence = slot.Confidence

	if req.Piece != "" {
		piece, err := imaging.DecodeBase64(req.Piece)
		if err != nil {
			resp.Error = fmt.Sprintf("piece: %v", err)
			return resp
		}
		pr, err := s.pipeline.LocatePiece(piece)
		if err != nil {
			resp.Error = err.Error()
			return resp
		}
		resp.PieceX = pr.Centroid.X
		resp.PieceY = pr.Centroid.Y
	}

	resp.Success = true
	log.Debug("Located slot", zap.Int("slot_x", resp.SlotX), zap.Int("slot_y", resp.SlotY), zap.Int("diff_count", resp.DiffCount))
	return resp
}

func (s *Service) encode(resp schemas.SolveResponse) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		// Only plain fields are encoded; this is not expected to happen.
		s.logger.Error("Failed to encode response", zap.Error(err))
		return []byte(`{"success":false,"error":"encode response"}`)
	}
	return out
}
