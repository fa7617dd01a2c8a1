package security

import "testing"

func TestResolveDefaultsToBatchProfile(t *testing.T) {
	r := NewResolver()

	p, err := r.Resolve("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "batch" {
		t.Fatalf("expected empty profile name to resolve to batch, got %q", p.Name)
	}

	p, err = r.Resolve("batch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.DisableNetwork {
		t.Fatalf("expected the batch profile to disable network")
	}
	if len(p.AllowedSyscalls) == 0 {
		t.Fatalf("expected the batch profile to carry a non-empty syscall allowlist")
	}
}

func TestResolveUnknownNameFallsBackToBatch(t *testing.T) {
	r := NewResolver()
	p, err := r.Resolve("does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != ProfileBatch.Name {
		t.Fatalf("expected unknown profile name to fall back to batch, got %q", p.Name)
	}
}

func TestRegisterOverridesAndAddsProfiles(t *testing.T) {
	r := NewResolver()
	custom := IsolationProfile{Name: "interactor", DisableNetwork: true, AllowedSyscalls: []string{"read", "write"}}
	r.Register(custom)

	got, err := r.Resolve("interactor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "interactor" || len(got.AllowedSyscalls) != 2 {
		t.Fatalf("expected the registered custom profile to be resolvable, got %+v", got)
	}

	// Resolving "batch" must still return the original, unaffected profile.
	batch, err := r.Resolve("batch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Name != "batch" {
		t.Fatalf("registering a new profile must not disturb the existing batch profile")
	}
}
