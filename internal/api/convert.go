package api

import (
	"github.com/matheus3301/mailcount/internal/counter"
	"github.com/matheus3301/mailcount/internal/folder"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

func intField(in *structpb.Struct, key string) int {
	return int(in.GetFields()[key].GetNumberValue())
}

func stringsField(in *structpb.Struct, key string) []string {
	values := in.GetFields()[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := v.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func locationField(in *structpb.Struct, key string) (folder.Location, error) {
	raw := stringField(in, key)
	if raw == "" {
		return folder.Invalid, grpcstatus.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	loc, err := folder.Parse(raw)
	if err != nil {
		return folder.Invalid, grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", key, err)
	}
	return loc, nil
}

// locationsField reads an optional list of locations, defaulting to all.
func locationsField(in *structpb.Struct, key string) ([]folder.Location, error) {
	names := stringsField(in, key)
	if len(names) == 0 {
		return folder.All(), nil
	}
	locs := make([]folder.Location, 0, len(names))
	for _, n := range names {
		loc, err := folder.Parse(n)
		if err != nil {
			return nil, grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", key, err)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

func countersList(list []counter.UnreadLocation) []any {
	out := make([]any, 0, len(list))
	for _, c := range list {
		out = append(out, map[string]any{
			"location": c.Location.String(),
			"code":     int(c.Location),
			"count":    c.Count,
		})
	}
	return out
}

func locationNames(locs []folder.Location) []any {
	out := make([]any, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.String())
	}
	return out
}

func toAnyList(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, v := range ss {
		out = append(out, v)
	}
	return out
}
