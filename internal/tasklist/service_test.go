package tasklist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mfarrow/taskhive/internal/apperr"
)

type fakeStore struct {
	lists     map[string]*List
	taskCount map[string]int
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{lists: map[string]*List{}, taskCount: map[string]int{}}
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*List, error) {
	return f.lists[id], nil
}

func (f *fakeStore) Create(_ context.Context, in CreateListInput) (*List, error) {
	f.nextID++
	l := &List{
		ID:          fmt.Sprintf("list-%d", f.nextID),
		Name:        in.Name,
		OwnerUserID: in.OwnerUserID,
		TeamID:      in.TeamID,
		CreatedAt:   time.Now(),
	}
	f.lists[l.ID] = l
	return l, nil
}

func (f *fakeStore) Update(_ context.Context, id string, in UpdateListInput) (*List, error) {
	l := f.lists[id]
	if l == nil {
		return nil, nil
	}
	if in.Name != nil {
		l.Name = *in.Name
	}
	if in.Archived != nil {
		l.Archived = *in.Archived
	}
	return l, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	delete(f.lists, id)
	return nil
}

func (f *fakeStore) ListPersonal(_ context.Context, userID string) ([]List, error) {
	var out []List
	for _, l := range f.lists {
		if l.OwnerUserID != nil && *l.OwnerUserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTeam(_ context.Context, teamID string) ([]List, error) {
	var out []List
	for _, l := range f.lists {
		if l.TeamID != nil && *l.TeamID == teamID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeStore) CountTasks(_ context.Context, listID string) (int, error) {
	return f.taskCount[listID], nil
}

type fakeMemberships struct {
	members map[string]bool // "teamID/userID"
}

func (f *fakeMemberships) IsMember(_ context.Context, teamID, userID string) (bool, error) {
	return f.members[teamID+"/"+userID], nil
}

func newTestService() (*Service, *fakeStore, *fakeMemberships) {
	st := newFakeStore()
	ms := &fakeMemberships{members: map[string]bool{}}
	return &Service{store: st, teams: ms}, st, ms
}

func appErr(t *testing.T, err error) *apperr.Error {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	return ae
}

func strptr(s string) *string { return &s }

func TestCreatePersonalList(t *testing.T) {
	svc, _, _ := newTestService()

	l, err := svc.Create(context.Background(), "alice", "  Groceries ", ScopePersonal, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Name != "Groceries" {
		t.Fatalf("name = %q, want trimmed", l.Name)
	}
	if l.OwnerUserID == nil || *l.OwnerUserID != "alice" || l.TeamID != nil {
		t.Fatalf("owner columns = %v/%v, want personal scope", l.OwnerUserID, l.TeamID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name   string
		list   string
		scope  Scope
		teamID *string
		field  string
	}{
		{"short name", "x", ScopePersonal, nil, "name"},
		{"bad scope", "Errands", Scope("global"), nil, "scope"},
		{"team without id", "Errands", ScopeTeam, nil, "teamId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice", tc.list, tc.scope, tc.teamID)
			ae := appErr(t, err)
			if ae.Code != apperr.CodeValidation || ae.Details[tc.field] == "" {
				t.Fatalf("got %+v, want %s detail", ae, tc.field)
			}
		})
	}
}

func TestCreateValidationAggregates(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "alice", "", Scope("bogus"), nil)
	ae := appErr(t, err)
	if len(ae.Details) != 2 {
		t.Fatalf("details = %v, want both name and scope reported", ae.Details)
	}
}

func TestCreateTeamListRequiresMembership(t *testing.T) {
	svc, _, ms := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", "Sprint", ScopeTeam, strptr("t1"))
	if appErr(t, err).Code != apperr.CodeForbidden {
		t.Fatalf("non-member create: got %v, want FORBIDDEN", err)
	}

	ms.members["t1/alice"] = true
	l, err := svc.Create(ctx, "alice", "Sprint", ScopeTeam, strptr("t1"))
	if err != nil {
		t.Fatalf("member create: %v", err)
	}
	if l.TeamID == nil || *l.TeamID != "t1" || l.OwnerUserID != nil {
		t.Fatalf("owner columns = %v/%v, want team scope", l.OwnerUserID, l.TeamID)
	}
}

func TestListScopePartitioning(t *testing.T) {
	svc, _, ms := newTestService()
	ctx := context.Background()
	ms.members["t1/alice"] = true

	svc.Create(ctx, "alice", "Personal stuff", ScopePersonal, nil)
	svc.Create(ctx, "alice", "Team stuff", ScopeTeam, strptr("t1"))

	personal, err := svc.List(ctx, "alice", ScopePersonal, nil)
	if err != nil {
		t.Fatalf("List personal: %v", err)
	}
	if len(personal) != 1 || personal[0].Name != "Personal stuff" {
		t.Fatalf("personal lists = %+v, want only the personal one", personal)
	}

	teamLists, err := svc.List(ctx, "alice", ScopeTeam, strptr("t1"))
	if err != nil {
		t.Fatalf("List team: %v", err)
	}
	if len(teamLists) != 1 || teamLists[0].Name != "Team stuff" {
		t.Fatalf("team lists = %+v, want only the team one", teamLists)
	}
}

func TestListTeamScopeGuards(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.List(ctx, "alice", ScopeTeam, nil); appErr(t, err).Code != apperr.CodeValidation {
		t.Fatalf("missing teamId: got %v, want VALIDATION_ERROR", err)
	}
	if _, err := svc.List(ctx, "alice", ScopeTeam, strptr("t1")); appErr(t, err).Code != apperr.CodeForbidden {
		t.Fatalf("non-member: got %v, want FORBIDDEN", err)
	}
	if _, err := svc.List(ctx, "alice", Scope("bogus"), nil); appErr(t, err).Code != apperr.CodeValidation {
		t.Fatalf("bad scope: got %v, want VALIDATION_ERROR", err)
	}
}

func TestUpdateList(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	l, _ := svc.Create(ctx, "alice", "Chores", ScopePersonal, nil)

	updated, err := svc.Update(ctx, l.ID, "alice", UpdateListInput{Name: strptr("  Weekend chores ")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Weekend chores" {
		t.Fatalf("name = %q", updated.Name)
	}

	archived := true
	updated, err = svc.Update(ctx, l.ID, "alice", UpdateListInput{Archived: &archived})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !updated.Archived {
		t.Fatalf("archived = false, want true")
	}
}

func TestUpdateListRejectsEmptyPatch(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	l, _ := svc.Create(ctx, "alice", "Chores", ScopePersonal, nil)

	_, err := svc.Update(ctx, l.ID, "alice", UpdateListInput{})
	ae := appErr(t, err)
	if ae.Code != apperr.CodeValidation || ae.Details["body"] != "No valid fields to update" {
		t.Fatalf("got %+v, want no-op rejection", ae)
	}

	_, err = svc.Update(ctx, l.ID, "alice", UpdateListInput{Name: strptr("x")})
	if appErr(t, err).Code != apperr.CodeValidation {
		t.Fatalf("short rename: got %v, want VALIDATION_ERROR", err)
	}
}

func TestUpdateListAccessBeforeValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	l, _ := svc.Create(ctx, "alice", "Chores", ScopePersonal, nil)

	// An inaccessible list surfaces Forbidden even when the patch itself
	// would also be invalid.
	_, err := svc.Update(ctx, l.ID, "mallory", UpdateListInput{})
	if appErr(t, err).Code != apperr.CodeForbidden {
		t.Fatalf("got %v, want FORBIDDEN before validation", err)
	}

	_, err = svc.Update(ctx, "missing", "alice", UpdateListInput{})
	if appErr(t, err).Code != apperr.CodeNotFound {
		t.Fatalf("got %v, want NOT_FOUND before validation", err)
	}
}

func TestDeleteListRefusedWhenNotEmpty(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	l, _ := svc.Create(ctx, "alice", "Chores", ScopePersonal, nil)
	st.taskCount[l.ID] = 1

	err := svc.Delete(ctx, l.ID, "alice")
	ae := appErr(t, err)
	if ae.Code != apperr.CodeListNotEmpty || ae.Status != 409 {
		t.Fatalf("got %+v, want 409 LIST_NOT_EMPTY", ae)
	}
	if st.lists[l.ID] == nil {
		t.Fatalf("list deleted despite tasks")
	}

	st.taskCount[l.ID] = 0
	if err := svc.Delete(ctx, l.ID, "alice"); err != nil {
		t.Fatalf("delete after emptying: %v", err)
	}
	if st.lists[l.ID] != nil {
		t.Fatalf("list still present")
	}
}

func TestAuthorize(t *testing.T) {
	svc, st, ms := newTestService()
	ctx := context.Background()
	ms.members["t1/bob"] = true

	personal, _ := svc.Create(ctx, "alice", "Mine", ScopePersonal, nil)
	team, _ := st.Create(ctx, CreateListInput{Name: "Shared", TeamID: strptr("t1")})

	cases := []struct {
		name   string
		listID string
		userID string
		code   string
	}{
		{"owner reads personal", personal.ID, "alice", ""},
		{"stranger blocked from personal", personal.ID, "bob", apperr.CodeForbidden},
		{"member reads team list", team.ID, "bob", ""},
		{"non-member blocked from team list", team.ID, "alice", apperr.CodeForbidden},
		{"missing list", "missing", "alice", apperr.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GetAuthorized(ctx, tc.listID, tc.userID)
			if tc.code == "" {
				if err != nil {
					t.Fatalf("GetAuthorized: %v", err)
				}
				return
			}
			if appErr(t, err).Code != tc.code {
				t.Fatalf("got %v, want %s", err, tc.code)
			}
		})
	}
}

func TestAuthorizeMembershipRevocation(t *testing.T) {
	svc, st, ms := newTestService()
	ctx := context.Background()

	team, _ := st.Create(ctx, CreateListInput{Name: "Shared", TeamID: strptr("t1")})

	if _, err := svc.GetAuthorized(ctx, team.ID, "carol"); appErr(t, err).Code != apperr.CodeForbidden {
		t.Fatalf("before membership: got %v, want FORBIDDEN", err)
	}

	ms.members["t1/carol"] = true
	if _, err := svc.GetAuthorized(ctx, team.ID, "carol"); err != nil {
		t.Fatalf("after membership granted: %v", err)
	}

	delete(ms.members, "t1/carol")
	if _, err := svc.GetAuthorized(ctx, team.ID, "carol"); appErr(t, err).Code != apperr.CodeForbidden {
		t.Fatalf("after revocation: got %v, want FORBIDDEN", err)
	}
}

func TestAuthorizeCorruptOwnerPairing(t *testing.T) {
	svc, st, _ := newTestService()
	ctx := context.Background()

	st.lists["corrupt"] = &List{ID: "corrupt", Name: "Orphan"}

	if err := svc.Authorize(ctx, st.lists["corrupt"], "alice"); appErr(t, err).Code != apperr.CodeForbidden {
		t.Fatalf("corrupt row: got %v, want FORBIDDEN", err)
	}
}
