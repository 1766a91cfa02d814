package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueSet(t *testing.T) {
	s := newFullValueSet(3)
	assert.Equal(t, "{0,1,2}", s.String())
	assert.True(t, s.has(2))
	assert.False(t, s.has(3))
	assert.False(t, s.has(-1))

	assert.True(t, s.remove(0))
	assert.False(t, s.remove(0))
	assert.False(t, s.isSingleton())
	assert.True(t, s.remove(2))
	assert.True(t, s.isSingleton())
	assert.Equal(t, 1, s.singletonValue())
	assert.True(t, s.remove(1))
	assert.True(t, s.empty())
	assert.Equal(t, "{}", s.String())
}

func TestValueSet_SpansWords(t *testing.T) {
	s := newFullValueSet(130)
	for v := 0; v < 130; v++ {
		if v != 97 {
			s.remove(v)
		}
	}
	assert.True(t, s.isSingleton())
	assert.Equal(t, 97, s.singletonValue())
	assert.Equal(t, "{97}", s.String())
}
