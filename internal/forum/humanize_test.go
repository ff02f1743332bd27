package forum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 minutes"},
		{-5 * time.Minute, "0 minutes"},
		{time.Minute, "1 minute"},
		{45 * time.Minute, "45 minutes"},
		{time.Hour, "1 hour"},
		{90 * time.Minute, "1 hour"},
		{5 * time.Hour, "5 hours"},
		{24 * time.Hour, "1 day"},
		{3*24*time.Hour + 6*time.Hour, "3 days"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HumanizeDuration(tc.in), "HumanizeDuration(%v)", tc.in)
	}
}

func TestThreadHasTag(t *testing.T) {
	thread := Thread{AppliedTags: []string{"tag-a", "tag-b"}}

	assert.True(t, thread.HasTag("tag-a"))
	assert.False(t, thread.HasTag("tag-c"))
}

func TestIsMemberGone(t *testing.T) {
	assert.True(t, IsMemberGone(ErrMemberGone))
	assert.False(t, IsMemberGone(ErrThreadNotFound))
	assert.False(t, IsMemberGone(nil))
}
