package policy_test

import "github.com/sarchlab/llcsim/policy"

// fakeController is the test double for the block-info seam (policy.Controller):
// every way starts invalid, and the test fills one in as each GetReplacementIndex
// call returns a way, mirroring what the surrounding simulator would do.
type fakeController struct {
	valid map[int]bool
}

func newFakeController(numWays int) *fakeController {
	return &fakeController{valid: make(map[int]bool, numWays)}
}

func (c *fakeController) IsValid(way int) bool { return c.valid[way] }

func (c *fakeController) install(way int) { c.valid[way] = true }

var _ policy.Controller = (*fakeController)(nil)
