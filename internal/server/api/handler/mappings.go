package handler

import (
	"log/slog"

	"github.com/Alia5/padmap/apitypes"
	"github.com/Alia5/padmap/internal/engine"
	"github.com/Alia5/padmap/internal/server/api"
	"github.com/Alia5/padmap/mapping"
)

// MappingsList returns a handler listing every stored mapping as record.
func MappingsList(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		out := apitypes.MappingsListResponse{Mappings: []apitypes.Mapping{}}
		for _, m := range e.Mappings() {
			out.Mappings = append(out.Mappings, apitypes.Mapping{
				ID:     m.ID(),
				Record: mapping.Encode(m),
				Quirks: toQuirks(m.Quirks()),
			})
		}
		return writeJSON(res, out)
	}
}

// MappingsExists returns a handler reporting whether the controller id in
// the payload has a mapping.
func MappingsExists(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		id, err := requireID(req)
		if err != nil {
			return err
		}
		return writeJSON(res, apitypes.MappingExistsResponse{ID: id, Exists: e.HasMapping(id)})
	}
}

// MappingsRemove returns a handler deleting the mapping of the controller
// id in the payload.
func MappingsRemove(e *engine.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		id, err := requireID(req)
		if err != nil {
			return err
		}
		ok, err := e.RemoveMapping(id)
		if err != nil {
			return api.ErrInternal(err.Error())
		}
		if !ok {
			return api.ErrNotFound("no mapping for " + id)
		}
		return writeJSON(res, apitypes.MappingRemoveResponse{ID: id})
	}
}
