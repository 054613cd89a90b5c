package utils_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestValueAndPtr(t *testing.T) {
	assert.Equal(t, "", utils.Value[string](nil))
	assert.Equal(t, "x", utils.Value(utils.Ptr("x")))
	assert.Nil(t, utils.PtrOrNil(""))
	assert.Equal(t, "y", *utils.PtrOrNil("y"))
}

func TestClone(t *testing.T) {
	assert.Nil(t, utils.Clone[int64](nil))

	orig := utils.Ptr("x")
	c := utils.Clone(orig)
	*c = "changed"
	assert.Equal(t, "x", *orig)
}

func TestAnyToString(t *testing.T) {
	assert.Equal(t, "123", utils.AnyToString(float64(123)))
	assert.Equal(t, "abc", utils.AnyToString("abc"))
	assert.Equal(t, "", utils.AnyToString(nil))
}
