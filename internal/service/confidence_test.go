package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/credobot/credo/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestCalculateNewConfidence_StaysInRange(t *testing.T) {
	starts := []float64{0, 0.01, 0.1, 0.5, 0.9, 0.99, 1}
	strengths := []domain.EvidenceStrength{domain.StrengthWeak, domain.StrengthModerate, domain.StrengthStrong}
	directions := []domain.Direction{domain.DirectionIncrease, domain.DirectionDecrease}

	for _, start := range starts {
		for _, strength := range strengths {
			for _, dir := range directions {
				got := CalculateNewConfidence(start, strength, dir)
				if got < MinConfidence || got > MaxConfidence {
					t.Errorf("CalculateNewConfidence(%.2f, %s, %s) = %f, out of [%.2f, %.2f]",
						start, strength, dir, got, MinConfidence, MaxConfidence)
				}
			}
		}
	}
}

func TestCalculateNewConfidence_SymmetricAroundStart(t *testing.T) {
	start := 0.5
	up := CalculateNewConfidence(start, domain.StrengthModerate, domain.DirectionIncrease)
	back := CalculateNewConfidence(up, domain.StrengthModerate, domain.DirectionDecrease)
	if math.Abs(back-start) > 0.01 {
		t.Errorf("increase then equal decrease moved %.3f -> %.3f -> %.3f, want return to start", start, up, back)
	}
}

func TestCalculateNewConfidence_WeakDecreaseFromSixty(t *testing.T) {
	got := CalculateNewConfidence(0.6, domain.StrengthWeak, domain.DirectionDecrease)
	if got <= 0.5 || got >= 0.6 {
		t.Errorf("weak decrease from 0.6 = %f, want in (0.5, 0.6)", got)
	}

	next := CalculateNewConfidence(got, domain.StrengthStrong, domain.DirectionIncrease)
	if next <= 0.7 {
		t.Errorf("strong increase from %f = %f, want > 0.7", got, next)
	}
}

func TestCalculateNewConfidence_SaturatesNearExtremes(t *testing.T) {
	high := CalculateNewConfidence(0.95, domain.StrengthStrong, domain.DirectionIncrease)
	mid := CalculateNewConfidence(0.5, domain.StrengthStrong, domain.DirectionIncrease)
	if high-0.95 >= mid-0.5 {
		t.Errorf("update near the extreme moved %.3f, mid moved %.3f; expected saturation", high-0.95, mid-0.5)
	}
}

func confidenceFixture(t *testing.T) (*ConfidenceService, *mockStanceStore, uuid.UUID, uuid.UUID) {
	t.Helper()
	beliefs := newMockBeliefStore()
	stances := newMockStanceStore(beliefs)

	personaID := uuid.New()
	node := &domain.BeliefNode{PersonaID: personaID, Title: "remote work improves focus"}
	if err := beliefs.CreateNode(context.Background(), node); err != nil {
		t.Fatalf("create node: %v", err)
	}

	svc := NewConfidenceService(stances, beliefs, zap.NewNop())
	return svc, stances, personaID, node.ID
}

func setStance(t *testing.T, stances *mockStanceStore, personaID, beliefID uuid.UUID, conf float32) {
	t.Helper()
	_, err := stances.ReplaceCurrent(context.Background(), domain.ReplaceStanceInput{
		PersonaID:  personaID,
		BeliefID:   beliefID,
		Text:       "initial stance",
		Confidence: &conf,
		Trigger:    domain.TriggerManual,
	})
	if err != nil {
		t.Fatalf("seed stance: %v", err)
	}
	stances.replaceCalls = 0
}

func TestConfidenceService_UpdateFromEvidence(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)

	sv, err := svc.UpdateFromEvidence(context.Background(), personaID, beliefID,
		domain.StrengthWeak, "counterexample found", domain.DirectionDecrease, "agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sv.Confidence == nil {
		t.Fatal("expected confidence on new stance")
	}
	if *sv.Confidence <= 0.5 || *sv.Confidence >= 0.6 {
		t.Errorf("confidence = %f, want in (0.5, 0.6)", *sv.Confidence)
	}
	if sv.Status != domain.StanceCurrent {
		t.Errorf("status = %s, want current", sv.Status)
	}
	if sv.Text != "initial stance" {
		t.Errorf("text = %q, want stance text preserved", sv.Text)
	}

	updates, _ := stances.ListUpdates(context.Background(), personaID, beliefID)
	if len(updates) != 1 {
		t.Fatalf("update rows = %d, want 1", len(updates))
	}
	if updates[0].TriggerType != domain.TriggerEvidence {
		t.Errorf("trigger = %s, want evidence", updates[0].TriggerType)
	}
}

func TestConfidenceService_UpdateFromEvidence_InvalidInput(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)

	_, err := svc.UpdateFromEvidence(context.Background(), personaID, beliefID,
		"overwhelming", "", domain.DirectionDecrease, "agent")
	if !errors.Is(err, ErrInvalidStrength) {
		t.Errorf("err = %v, want ErrInvalidStrength", err)
	}

	_, err = svc.UpdateFromEvidence(context.Background(), personaID, beliefID,
		domain.StrengthWeak, "", "sideways", "agent")
	if !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("err = %v, want ErrInvalidDirection", err)
	}
}

func TestConfidenceService_UpdateFromEvidence_Locked(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)
	if _, err := stances.Lock(context.Background(), personaID, beliefID, "pinned", "admin"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	_, err := svc.UpdateFromEvidence(context.Background(), personaID, beliefID,
		domain.StrengthStrong, "", domain.DirectionIncrease, "agent")
	if !errors.Is(err, ErrStanceLocked) {
		t.Errorf("err = %v, want ErrStanceLocked", err)
	}
	if stances.replaceCalls != 0 {
		t.Errorf("replace calls = %d, want 0 on locked stance", stances.replaceCalls)
	}
}

func TestConfidenceService_UpdateFromConflict_HighConfidenceRejectsWeak(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.85)

	for _, strength := range []domain.EvidenceStrength{domain.StrengthWeak, domain.StrengthModerate} {
		applied, err := svc.UpdateFromConflict(context.Background(), personaID, beliefID, ConflictInput{
			Explanation:      "a user disagreed",
			EvidenceStrength: strength,
		}, "agent")
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", strength, err)
		}
		if applied {
			t.Errorf("%s conflict against 0.85 belief applied, want rejected", strength)
		}
	}
	if stances.replaceCalls != 0 {
		t.Errorf("replace calls = %d, want 0 after rejections", stances.replaceCalls)
	}
}

func TestConfidenceService_UpdateFromConflict_HighConfidenceDampensStrong(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.85)

	applied, err := svc.UpdateFromConflict(context.Background(), personaID, beliefID, ConflictInput{
		Explanation:      "peer-reviewed refutation",
		EvidenceStrength: domain.StrengthStrong,
	}, "agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("strong conflict against high-confidence belief should apply")
	}

	active, err := stances.GetActive(context.Background(), personaID, beliefID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	got := float64(*active.Confidence)
	if got >= 0.85 {
		t.Errorf("confidence = %f, want decreased from 0.85", got)
	}
	// Strong evidence is applied at moderate magnitude above the threshold.
	fullStrong := CalculateNewConfidence(0.85, domain.StrengthStrong, domain.DirectionDecrease)
	moderate := CalculateNewConfidence(0.85, domain.StrengthModerate, domain.DirectionDecrease)
	if math.Abs(got-moderate) > 0.001 {
		t.Errorf("confidence = %f, want moderate-magnitude result %f (full strong would be %f)", got, moderate, fullStrong)
	}
}

func TestConfidenceService_UpdateFromConflict_MidBandFullStrength(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)

	applied, err := svc.UpdateFromConflict(context.Background(), personaID, beliefID, ConflictInput{
		Explanation:      "contradicting data",
		EvidenceStrength: domain.StrengthWeak,
	}, "agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("weak conflict in the mid band should apply")
	}

	active, _ := stances.GetActive(context.Background(), personaID, beliefID)
	want := CalculateNewConfidence(0.6, domain.StrengthWeak, domain.DirectionDecrease)
	if math.Abs(float64(*active.Confidence)-want) > 0.001 {
		t.Errorf("confidence = %f, want %f", *active.Confidence, want)
	}
}

func TestConfidenceService_UpdateFromConflict_LockedRejectsSilently(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)
	if _, err := stances.Lock(context.Background(), personaID, beliefID, "pinned", "admin"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	applied, err := svc.UpdateFromConflict(context.Background(), personaID, beliefID, ConflictInput{
		Explanation:      "strong refutation",
		EvidenceStrength: domain.StrengthStrong,
	}, "agent")
	if err != nil {
		t.Fatalf("locked conflict should not error, got %v", err)
	}
	if applied {
		t.Error("conflict against locked stance applied, want rejected")
	}
	if stances.replaceCalls != 0 {
		t.Errorf("replace calls = %d, want 0", stances.replaceCalls)
	}
}

func TestConfidenceService_UpdateFromConflict_IncompleteInput(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)

	_, err := svc.UpdateFromConflict(context.Background(), personaID, beliefID, ConflictInput{
		EvidenceStrength: domain.StrengthWeak,
	}, "agent")
	if !errors.Is(err, ErrConflictIncomplete) {
		t.Errorf("err = %v, want ErrConflictIncomplete", err)
	}

	_, err = svc.UpdateFromConflict(context.Background(), personaID, beliefID, ConflictInput{
		Explanation:      "some reason",
		EvidenceStrength: "overwhelming",
	}, "agent")
	if !errors.Is(err, ErrInvalidStrength) {
		t.Errorf("err = %v, want ErrInvalidStrength", err)
	}
}

func TestConfidenceService_NudgeConfidence_Buckets(t *testing.T) {
	tests := []struct {
		amount float64
		want   domain.EvidenceStrength
	}{
		{0.03, domain.StrengthWeak},
		{0.05, domain.StrengthWeak},
		{0.10, domain.StrengthModerate},
		{0.15, domain.StrengthModerate},
		{0.30, domain.StrengthStrong},
		{0.50, domain.StrengthStrong},
	}

	for _, tt := range tests {
		svc, stances, personaID, beliefID := confidenceFixture(t)
		setStance(t, stances, personaID, beliefID, 0.5)

		sv, err := svc.NudgeConfidence(context.Background(), personaID, beliefID,
			domain.DirectionIncrease, tt.amount, "", "agent")
		if err != nil {
			t.Fatalf("amount %f: unexpected error: %v", tt.amount, err)
		}
		want := CalculateNewConfidence(0.5, tt.want, domain.DirectionIncrease)
		if math.Abs(float64(*sv.Confidence)-want) > 0.001 {
			t.Errorf("amount %f: confidence = %f, want %f (%s bucket)", tt.amount, *sv.Confidence, want, tt.want)
		}
	}
}

func TestConfidenceService_NudgeConfidence_InvalidAmount(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.5)

	for _, amount := range []float64{0, -0.1, 0.51, 1} {
		_, err := svc.NudgeConfidence(context.Background(), personaID, beliefID,
			domain.DirectionIncrease, amount, "", "agent")
		if !errors.Is(err, ErrInvalidNudgeAmount) {
			t.Errorf("amount %f: err = %v, want ErrInvalidNudgeAmount", amount, err)
		}
	}
}

func TestConfidenceService_ManualUpdate(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)

	newConf := float32(0.9)
	sv, err := svc.ManualUpdate(context.Background(), personaID, beliefID, &newConf, nil, "admin override", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *sv.Confidence != 0.9 {
		t.Errorf("confidence = %f, want 0.9", *sv.Confidence)
	}
	if sv.Text != "initial stance" {
		t.Errorf("text = %q, want existing text kept", sv.Text)
	}
}

func TestConfidenceService_ManualUpdate_NoStanceNeedsText(t *testing.T) {
	svc, _, personaID, beliefID := confidenceFixture(t)

	conf := float32(0.7)
	_, err := svc.ManualUpdate(context.Background(), personaID, beliefID, &conf, nil, "", "admin")
	if !errors.Is(err, ErrTextRequired) {
		t.Errorf("err = %v, want ErrTextRequired", err)
	}

	text := "a first stance"
	sv, err := svc.ManualUpdate(context.Background(), personaID, beliefID, &conf, &text, "", "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sv.Text != text || *sv.Confidence != 0.7 {
		t.Errorf("got (%q, %f), want (%q, 0.7)", sv.Text, *sv.Confidence, text)
	}
}

func TestConfidenceService_ManualUpdate_Locked(t *testing.T) {
	svc, stances, personaID, beliefID := confidenceFixture(t)
	setStance(t, stances, personaID, beliefID, 0.6)
	if _, err := stances.Lock(context.Background(), personaID, beliefID, "pinned", "admin"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	conf := float32(0.9)
	_, err := svc.ManualUpdate(context.Background(), personaID, beliefID, &conf, nil, "", "admin")
	if !errors.Is(err, ErrStanceLocked) {
		t.Errorf("err = %v, want ErrStanceLocked", err)
	}
}
