package api

import (
	"context"
	"strings"

	"github.com/matheus3301/mailcount/internal/contacts"
	"github.com/matheus3301/mailcount/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ContactService implements mailcount.v1.ContactService.
type ContactService struct {
	db       *store.DB
	importer *contacts.Importer
}

// NewContactService creates the contact service.
func NewContactService(db *store.DB, im *contacts.Importer) *ContactService {
	return &ContactService{db: db, importer: im}
}

// ImportContacts decodes a raw listing page ("payload") and caches it.
func (s *ContactService) ImportContacts(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	listing, err := contacts.Decode(strings.NewReader(stringField(in, "payload")))
	if err != nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.importer.Import(listing)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "import contacts: %v", err)
	}
	return toStruct(map[string]any{
		"imported": res.Imported,
		"stored":   res.Stored,
		"total":    res.Total,
		"has_more": res.HasMore,
	})
}

func (s *ContactService) ListContacts(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	list, err := s.db.ListContacts(intField(in, "limit"), intField(in, "offset"))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list contacts: %v", err)
	}
	total, err := s.db.ContactCount()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "count contacts: %v", err)
	}

	serverTotal, err := s.importer.ServerTotal()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "contacts server total: %v", err)
	}

	out := make([]any, 0, len(list))
	for _, c := range list {
		out = append(out, map[string]any{"id": c.ID, "name": c.Name})
	}
	return toStruct(map[string]any{"contacts": out, "total": total, "server_total": serverTotal})
}

func (s *ContactService) GetContact(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(in, "id")
	c, err := s.db.GetContact(id)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "get contact: %v", err)
	}
	if c == nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "contact %q not found", id)
	}
	return toStruct(map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"uid":         c.UID,
		"size":        c.Size,
		"create_time": c.CreateTime,
		"modify_time": c.ModifyTime,
		"label_ids":   toAnyList(c.LabelIDs),
	})
}
