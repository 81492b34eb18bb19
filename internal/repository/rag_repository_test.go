package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLikeNeutralizesWildcards(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike(`100%`))
	assert.Equal(t, `a\_b`, escapeLike(`a_b`))
	assert.Equal(t, `c:\\share`, escapeLike(`c:\share`))
	assert.Equal(t, `\%\%\%`, escapeLike(`%%%`))
	assert.Equal(t, `printer jam`, escapeLike(`printer jam`))
}
