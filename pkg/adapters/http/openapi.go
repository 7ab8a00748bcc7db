package http

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/aretw0/weave"
	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var apiDocument []byte

// LoadAPIDoc parses the OpenAPI document describing this API.
// The document is parsed once and shared; callers must not modify it.
var LoadAPIDoc = sync.OnceValues(func() (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(apiDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return doc, nil
})

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	App        string `json:"app"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := LoadAPIDoc(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	} else if err != nil {
		s.logger.WarnContext(r.Context(), "openapi document unavailable", "err", err)
	}
	s.writeJSON(w, r, http.StatusOK, InfoResponse{
		App:        "weave-http",
		Version:    weave.Version,
		APIVersion: apiVersion,
	})
}

// GetOpenAPI handles GET /openapi.json.
func (s *Server) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := LoadAPIDoc()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, doc)
}
