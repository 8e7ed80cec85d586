package intel

import (
	"math/rand"
	"testing"
	"time"

	"ammowatch/internal/caliber"
)

func deal(productID string, reason Reason, detectedAt time.Time, cal caliber.Caliber) MarketDeal {
	return MarketDeal{
		ProductID:  productID,
		Caliber:    cal,
		Reason:     reason,
		DetectedAt: detectedAt,
	}
}

func TestRankTotalOrder(t *testing.T) {
	t0 := day(t, "2026-08-20")
	deals := []MarketDeal{
		deal("p3", ReasonBackInStock, t0, caliber.Cal9mm),
		deal("p2", ReasonLowest90d, t0.Add(-time.Hour), caliber.Cal556),
		deal("p1", ReasonPriceDrop, t0.Add(time.Hour), caliber.Cal308),
		deal("p4", ReasonPriceDrop, t0, caliber.Cal45ACP),
		deal("p0", ReasonBackInStock, t0, caliber.Cal22LR),
	}

	ranked := Rank(deals)
	want := []string{"p4", "p1", "p2", "p0", "p3"}
	for i, id := range want {
		if ranked[i].ProductID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].ProductID)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	t0 := day(t, "2026-08-20")
	deals := []MarketDeal{
		deal("p2", ReasonBackInStock, t0, caliber.Cal9mm),
		deal("p1", ReasonPriceDrop, t0, caliber.Cal556),
	}
	_ = Rank(deals)
	if deals[0].ProductID != "p2" {
		t.Fatal("Rank must sort a copy, not the caller's slice")
	}
}

func TestHeroDeterministicUnderPermutations(t *testing.T) {
	t0 := day(t, "2026-08-20")
	deals := []MarketDeal{
		deal("p1", ReasonPriceDrop, t0, caliber.Cal9mm),
		deal("p2", ReasonPriceDrop, t0, caliber.Cal556),
		deal("p3", ReasonLowest90d, t0.Add(-2*time.Hour), caliber.Cal308),
		deal("p4", ReasonBackInStock, t0.Add(-3*time.Hour), caliber.Cal45ACP),
		deal("p5", ReasonPriceDrop, t0.Add(time.Minute), caliber.Cal22LR),
	}

	base := Hero(Rank(deals))
	if base == nil {
		t.Fatal("expected a hero")
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		shuffled := make([]MarketDeal, len(deals))
		copy(shuffled, deals)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		hero := Hero(Rank(shuffled))
		if hero == nil || hero.ProductID != base.ProductID {
			t.Fatalf("trial %d: hero changed under permutation: %+v", trial, hero)
		}
	}
}

func TestHeroEmptySet(t *testing.T) {
	if Hero(nil) != nil {
		t.Fatal("empty eligible set must produce a nil hero")
	}
}

func TestSplitPreservesOrderAndCaps(t *testing.T) {
	t0 := day(t, "2026-08-20")
	ranked := Rank([]MarketDeal{
		deal("p1", ReasonPriceDrop, t0, caliber.Cal9mm),
		deal("p2", ReasonPriceDrop, t0, caliber.Cal556),
		deal("p3", ReasonLowest90d, t0, caliber.Cal9mm),
		deal("p4", ReasonBackInStock, t0, caliber.Cal308),
		deal("p5", ReasonLowest90d, t0, caliber.Cal9mm),
	})

	viewer := map[caliber.Caliber]bool{caliber.Cal9mm: true}
	matched, other := Split(ranked, viewer, 2, 10)

	if len(matched) != 2 {
		t.Fatalf("matched partition must honour its cap, got %d", len(matched))
	}
	if matched[0].ProductID != "p1" || matched[1].ProductID != "p3" {
		t.Fatalf("matched partition out of order: %s, %s", matched[0].ProductID, matched[1].ProductID)
	}
	if len(other) != 2 || other[0].ProductID != "p2" || other[1].ProductID != "p4" {
		t.Fatalf("other partition out of order: %+v", other)
	}
}

func TestSplitNeverChangesHero(t *testing.T) {
	t0 := day(t, "2026-08-20")
	ranked := Rank([]MarketDeal{
		deal("p1", ReasonPriceDrop, t0, caliber.Cal9mm),
		deal("p2", ReasonLowest90d, t0, caliber.Cal556),
	})
	hero := Hero(ranked)

	viewers := []map[caliber.Caliber]bool{
		nil,
		{},
		{caliber.Cal9mm: true},
		{caliber.Cal556: true},
		{caliber.Cal308: true},
	}
	for _, viewer := range viewers {
		Split(ranked, viewer, 10, 10)
		after := Hero(ranked)
		if after == nil || after.ProductID != hero.ProductID {
			t.Fatalf("hero changed after splitting with viewer %v", viewer)
		}
	}
}
