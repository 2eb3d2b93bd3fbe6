package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines(t *testing.T) {
	t.Parallel()

	var lines []string
	err := ReadLines(strings.NewReader("temp 21.5\n  rpm 1200  \n\nlast"), func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"temp 21.5", "rpm 1200", "", "last"}, lines)
}
