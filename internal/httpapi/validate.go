package httpapi

import (
	"errors"
	"strings"

	"enginefleet/internal/apperr"
	"enginefleet/internal/instance"
)

// validateIntake trims and validates name/version the way every create
// path (sync, queued, streamed) does before ever touching the runtime.
// An empty version falls back to defaultVersion.
func validateIntake(op, name, version, defaultVersion string) (string, string, error) {
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if version == "" {
		version = defaultVersion
	}

	if name == "" {
		return "", "", apperr.Validation(op, errors.New("Nome obrigatório"))
	}
	if !instance.ValidName(name) {
		return "", "", apperr.Validation(op, errors.New("Nome deve conter apenas letras minusculas, numeros e hifens (2-32 chars)"))
	}
	if !instance.ValidVersion(version) {
		return "", "", apperr.Validation(op, errors.New("Versão deve ser 'latest' ou X.Y.Z (ex: 1.123.20)"))
	}
	return name, version, nil
}
