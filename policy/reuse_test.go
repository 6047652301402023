package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReuse(t *testing.T) {
	cases := []struct {
		access uint8
		want   ReuseClass
	}{
		{0, ReuseDead},
		{1, ReuseOnce},
		{2, ReuseTwice},
		{3, ReuseThriceOrMore},
		{255, ReuseThriceOrMore},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyReuse(tc.access))
	}
}
