package acl

import (
	"encoding/base64"
	"fmt"
	"testing"
)

func encodedTestSD(t *testing.T, owner string, aces ...testACE) string {
	t.Helper()
	data := buildSD(t, CONTROLFLAG_SELF_RELATIVE|CONTROLFLAG_DACL_PRESENT, owner, aces...)
	return base64.StdEncoding.EncodeToString(data)
}

func TestResolveAllParallelMatchesSequential(t *testing.T) {
	ctx := testContext()
	var tasks []Task
	for i := 0; i < 250; i++ {
		tasks = append(tasks, Task{
			ObjectID:          fmt.Sprintf("S-1-5-21-9-9-9-%d", 2000+i),
			EntryType:         "User",
			DistinguishedName: testUserDN,
			RawAces: encodedTestSD(t, "S-1-5-21-1-2-3-1104", testACE{
				acetype: ACETYPE_ACCESS_ALLOWED,
				mask:    RIGHT_GENERIC_ALL,
				sid:     "S-1-5-21-1-2-3-1105",
			}),
		})
	}

	sequential := ResolveAll(tasks, ctx, 1)
	parallel := ResolveAll(tasks, ctx, 8)

	if len(sequential) != len(tasks) || len(parallel) != len(tasks) {
		t.Fatalf("sequential %v, parallel %v, want %v", len(sequential), len(parallel), len(tasks))
	}
	for id, want := range sequential {
		got, found := parallel[id]
		if !found {
			t.Fatalf("parallel run lost %v", id)
		}
		if len(got.Relationships) != len(want.Relationships) {
			t.Errorf("%v: parallel %v edges, sequential %v", id, len(got.Relationships), len(want.Relationships))
		}
	}
}

func TestResolveAllMalformedDescriptorDegrades(t *testing.T) {
	tasks := []Task{
		{ObjectID: "bad-base64", EntryType: "User", RawAces: "!!not base64!!"},
		{ObjectID: "bad-bytes", EntryType: "User", RawAces: base64.StdEncoding.EncodeToString([]byte{9, 9, 9})},
		{ObjectID: "empty", EntryType: "User", RawAces: ""},
		{
			ObjectID:          "good",
			EntryType:         "User",
			DistinguishedName: testUserDN,
			RawAces: encodedTestSD(t, "S-1-5-21-1-2-3-1104", testACE{
				acetype: ACETYPE_ACCESS_ALLOWED,
				mask:    RIGHT_GENERIC_ALL,
				sid:     "S-1-5-21-1-2-3-1105",
			}),
		},
	}

	outcomes := ResolveAll(tasks, testContext(), 1)
	if len(outcomes) != 4 {
		t.Fatalf("every task should produce an outcome, got %v", len(outcomes))
	}
	for _, id := range []string{"bad-base64", "bad-bytes", "empty"} {
		if len(outcomes[id].Relationships) != 0 {
			t.Errorf("%v should resolve to nothing", id)
		}
	}
	good := outcomes["good"]
	if len(good.Relationships) != 2 {
		t.Errorf("good task should resolve owner and ACE, got %v", len(good.Relationships))
	}
}
