package layer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFloatsAsCode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloatsAsCode(&buf, "weights", []float32{1, -0.5, 0.25}))
	assert.Equal(t, "weights := []float32{\n\t1, -0.5, 0.25,\n}\n", buf.String())
}
