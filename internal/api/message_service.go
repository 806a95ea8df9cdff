package api

import (
	"context"
	"errors"
	"strings"

	"github.com/matheus3301/mailcount/internal/messages"
	"github.com/matheus3301/mailcount/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// MessageService implements mailcount.v1.MessageService.
type MessageService struct {
	db       *store.DB
	importer *messages.Importer
}

// NewMessageService creates the message service.
func NewMessageService(db *store.DB, im *messages.Importer) *MessageService {
	return &MessageService{db: db, importer: im}
}

// ImportMessages decodes a raw messages page ("payload") and caches it.
func (s *MessageService) ImportMessages(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	page, err := messages.Decode(strings.NewReader(stringField(in, "payload")))
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.importer.Import(page)
	if errors.Is(err, messages.ErrInvalidLocation) {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "import messages: %v", err)
	}
	return toStruct(map[string]any{
		"imported":         res.Imported,
		"total":            res.Total,
		"counters_changed": res.CountersChanged,
	})
}

func (s *MessageService) ListMessages(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	loc, err := locationField(in, "location")
	if err != nil {
		return nil, err
	}
	list, err := s.db.ListMessages(loc, intField(in, "limit"))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list messages: %v", err)
	}

	out := make([]any, 0, len(list))
	for _, m := range list {
		out = append(out, map[string]any{
			"id":       m.ID,
			"subject":  m.Subject,
			"location": m.Location.String(),
			"is_read":  m.IsRead,
			"time":     m.Time,
		})
	}
	return toStruct(map[string]any{"messages": out})
}
