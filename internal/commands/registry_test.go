package commands_test

import (
	"testing"

	"fluxtodo/internal/commands"
)

func TestRegistry_FindByAlias(t *testing.T) {
	cmd, found := commands.DefaultRegistry.Find("addlist")
	if !found || cmd.Name() != "createlist" {
		t.Fatalf("addlist resolved to %v", cmd)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := commands.NewRegistry()
	if err := r.Register(&commands.AddCmd{}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&commands.AddCmd{}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistry_AllIsSortedAndUnique(t *testing.T) {
	all := commands.DefaultRegistry.All()
	seen := map[string]bool{}
	for i, cmd := range all {
		if seen[cmd.Name()] {
			t.Errorf("duplicate %s", cmd.Name())
		}
		seen[cmd.Name()] = true
		if i > 0 && all[i-1].Name() >= cmd.Name() {
			t.Errorf("not sorted: %s before %s", all[i-1].Name(), cmd.Name())
		}
	}
	for _, name := range []string{"add", "clear", "doneall", "edit", "serve", "stats"} {
		if !seen[name] {
			t.Errorf("missing %s", name)
		}
	}
}

func TestRegistry_Suggest(t *testing.T) {
	r := commands.DefaultRegistry
	if got, ok := r.Suggest("ren"); !ok || got != "renamelist" {
		t.Errorf("ren: got %q %v", got, ok)
	}
	// "list" and "lists" both start with "lis".
	if _, ok := r.Suggest("lis"); ok {
		t.Error("lis should be ambiguous")
	}
	if _, ok := r.Suggest("zzz"); ok {
		t.Error("zzz should not match")
	}
}
