package game

import "testing"

func TestCreateInviteCodeShape(t *testing.T) {
	code := createInviteCode()
	if len(code) != inviteCodeLength {
		t.Fatalf("expected invite code of length %d, got %q", inviteCodeLength, code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected only digits in invite code, got %q", code)
		}
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	handle := &Handle{GameID: "game-1", InviteCode: "111111"}
	r.Register(handle, "manager-sock")

	if got, ok := r.Game("game-1"); !ok || got != handle {
		t.Fatalf("expected to find game-1 in registry")
	}
	if got, ok := r.GameByInviteCode("111111"); !ok || got != handle {
		t.Fatalf("expected to resolve invite code to game-1")
	}
	if gid, ok := r.GameForManagerSocket("manager-sock"); !ok || gid != "game-1" {
		t.Fatalf("expected manager socket to be bound to game-1")
	}
}

func TestRegistryPlayerSocketBindUnbind(t *testing.T) {
	r := NewRegistry()
	r.BindPlayerSocket("p1", "game-1")

	if gid, ok := r.GameForPlayerSocket("p1"); !ok || gid != "game-1" {
		t.Fatalf("expected player socket p1 bound to game-1")
	}

	r.UnbindPlayerSocket("p1")
	if _, ok := r.GameForPlayerSocket("p1"); ok {
		t.Fatalf("expected player socket p1 to be unbound")
	}
}

func TestRegistryRemoveGameClearsEverything(t *testing.T) {
	r := NewRegistry()
	handle := &Handle{GameID: "game-1", InviteCode: "222222"}
	r.Register(handle, "manager-sock")
	r.BindPlayerSocket("p1", "game-1")
	r.BindPlayerSocket("p2", "game-2") // belongs to a different game

	r.RemoveGame("game-1")

	if _, ok := r.Game("game-1"); ok {
		t.Errorf("expected game-1 to be removed")
	}
	if _, ok := r.GameByInviteCode("222222"); ok {
		t.Errorf("expected invite code to be removed along with its game")
	}
	if _, ok := r.GameForPlayerSocket("p1"); ok {
		t.Errorf("expected p1's binding to game-1 to be cleared")
	}
	if gid, ok := r.GameForPlayerSocket("p2"); !ok || gid != "game-2" {
		t.Errorf("expected p2's binding to an unrelated game to survive")
	}
	if _, ok := r.GameForManagerSocket("manager-sock"); ok {
		t.Errorf("expected manager socket binding to be cleared")
	}
}
