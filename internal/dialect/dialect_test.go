package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_IsValid(t *testing.T) {
	p := Default()
	assert.NoError(t, p.Validate())
	assert.Equal(t, "python3", p.SourceVersion)
	assert.Equal(t, PolicyWarn, p.Unsupported)
}

func TestValidate(t *testing.T) {
	p := Default()
	p.Unsupported = "panic"
	assert.Error(t, p.Validate())

	p = Default()
	p.IndentWidth = 0
	assert.Error(t, p.Validate())

	p = Default()
	p.Unsupported = PolicyFail
	assert.NoError(t, p.Validate())
}
