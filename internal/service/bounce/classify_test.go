package bounce

import (
	"testing"

	"github.com/ignite/mailguard/internal/domain"
)

func TestClassify_HardCodes(t *testing.T) {
	for _, code := range []int{550, 551, 553, 554} {
		if got := Classify(code, "user unknown"); got != domain.BounceHard {
			t.Errorf("Classify(%d) = %s, want hard", code, got)
		}
	}
}

func TestClassify_SoftCodes(t *testing.T) {
	for _, code := range []int{421, 450, 451, 452} {
		if got := Classify(code, "mailbox busy, try again later"); got != domain.BounceSoft {
			t.Errorf("Classify(%d) = %s, want soft", code, got)
		}
	}
}

func TestClassify_SpamBlock(t *testing.T) {
	tests := []struct {
		name string
		code int
		msg  string
		want domain.BounceType
	}{
		{"spamhaus listing", 554, "5.7.1 Service unavailable; client host listed in Spamhaus ZEN", domain.BounceBlock},
		{"spam detected", 554, "Message rejected: spam detected by content filter", domain.BounceBlock},
		{"barracuda", 554, "Rejected by Barracuda Reputation", domain.BounceBlock},
		{"dnsbl", 554, "Connection refused, see DNSBL", domain.BounceBlock},
		{"plain 554", 554, "transaction failed", domain.BounceHard},
		{"signature on non-554 stays hard", 550, "listed in Spamhaus", domain.BounceHard},
		{"signature on soft code stays soft", 451, "greylisted, blocked using policy", domain.BounceSoft},
	}
	for _, tt := range tests {
		if got := Classify(tt.code, tt.msg); got != tt.want {
			t.Errorf("%s: Classify(%d, %q) = %s, want %s", tt.name, tt.code, tt.msg, got, tt.want)
		}
	}
}

func TestClassify_UnknownCodes(t *testing.T) {
	if got := Classify(552, "quota exceeded"); got != domain.BounceHard {
		t.Errorf("unknown 5xx should classify hard, got %s", got)
	}
	if got := Classify(441, "no answer from host"); got != domain.BounceSoft {
		t.Errorf("unknown 4xx should classify soft, got %s", got)
	}
}

func TestClassify_BlockCountsTowardBlacklist(t *testing.T) {
	bt := Classify(554, "rejected: spam detected")
	if bt != domain.BounceBlock {
		t.Fatalf("Classify = %s, want block", bt)
	}
	if !bt.CountsAsHard() {
		t.Error("block bounces must count toward the blacklist threshold")
	}
}
