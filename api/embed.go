// Package api embeds the OpenAPI contract served by the guestbook HTTP API.
package api

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var specYAML []byte

var (
	loadOnce sync.Once
	loaded   *openapi3.T
	loadErr  error
)

// Spec returns the parsed and validated OpenAPI document.
func Spec() (*openapi3.T, error) {
	loadOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(specYAML)
		if err != nil {
			loadErr = fmt.Errorf("load openapi spec: %w", err)
			return
		}
		if err := doc.Validate(loader.Context); err != nil {
			loadErr = fmt.Errorf("validate openapi spec: %w", err)
			return
		}
		loaded = doc
	})
	return loaded, loadErr
}

// RawSpec returns the embedded YAML document.
func RawSpec() []byte {
	return specYAML
}
