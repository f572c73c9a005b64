package spam

import "testing"

func TestClassifySubjectKeywordHit(t *testing.T) {
	c := New([]string{"viagra"}, nil, 1.0)
	sig := c.Classify("Cheap VIAGRA now", "nothing interesting", "alice@example.com")
	if !sig.IsSpam {
		t.Fatalf("Classify() IsSpam = false, want true (score %v)", sig.Score)
	}
	if sig.Score != subjectKeywordWeight {
		t.Errorf("Score = %v, want %v", sig.Score, subjectKeywordWeight)
	}
	if len(sig.MatchedKeyword) != 1 || sig.MatchedKeyword[0] != "viagra" {
		t.Errorf("MatchedKeyword = %v, want [viagra]", sig.MatchedKeyword)
	}
}

func TestClassifySubjectAndContentBothScore(t *testing.T) {
	c := New([]string{"lottery"}, nil, 100)
	sig := c.Classify("You won the lottery", "claim your lottery prize", "bob@example.com")
	want := subjectKeywordWeight + contentKeywordWeight
	if sig.Score != want {
		t.Errorf("Score = %v, want %v", sig.Score, want)
	}
	if sig.IsSpam {
		t.Error("IsSpam = true, want false (below threshold 100)")
	}
}

func TestClassifySenderPattern(t *testing.T) {
	c := New(nil, []string{"-noreply-"}, senderPatternWeight)
	sig := c.Classify("hello", "hi there", "promo-noreply-blast@bulk.example.com")
	if !sig.IsSpam {
		t.Errorf("IsSpam = false, want true (score %v)", sig.Score)
	}
	if sig.Score != senderPatternWeight {
		t.Errorf("Score = %v, want %v", sig.Score, senderPatternWeight)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	c := New([]string{"FREE MONEY"}, nil, 0.1)
	sig := c.Classify("free money now", "", "someone@example.com")
	if !sig.IsSpam {
		t.Error("Classify() did not match keyword case-insensitively")
	}
}

func TestClassifyEmptyKeywordsIgnored(t *testing.T) {
	c := New([]string{"", "spam"}, []string{""}, 1.0)
	sig := c.Classify("this has spam in it", "", "ok@example.com")
	if len(sig.MatchedKeyword) != 1 || sig.MatchedKeyword[0] != "spam" {
		t.Errorf("MatchedKeyword = %v, want [spam]", sig.MatchedKeyword)
	}
}

func TestClassifyCleanMessage(t *testing.T) {
	c := New([]string{"viagra", "lottery"}, []string{"-bulk-"}, 1.0)
	sig := c.Classify("Project status update", "Meeting moved to 3pm", "carol@example.com")
	if sig.IsSpam {
		t.Error("IsSpam = true for clean message")
	}
	if sig.Score != 0 {
		t.Errorf("Score = %v, want 0", sig.Score)
	}
	if sig.MatchedKeyword != nil {
		t.Errorf("MatchedKeyword = %v, want nil", sig.MatchedKeyword)
	}
}
