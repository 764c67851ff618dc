package loaders

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

type ShaderLoader struct{}

// Load reads a compiled shader binary.
func (sl *ShaderLoader) Load(path string) (*metadata.ShaderBinary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(core.ErrInvalidFile, "%s: %s", path, err.Error())
	}
	binary, err := metadata.DecodeShader(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return binary, nil
}
