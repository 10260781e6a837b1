package parsers

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func ldapLog(names ...string) string {
	var b strings.Builder
	for _, name := range names {
		b.WriteString(strings.Repeat("-", 20) + "\n")
		fmt.Fprintf(&b, "cn: %s\n", name)
		fmt.Fprintf(&b, "objectSid: S-1-5-21-1-2-3-%d\n", 1000+len(name))
	}
	b.WriteString(strings.Repeat("-", 20) + "\n")
	fmt.Fprintf(&b, "retrieved %d results\n", len(names))
	return b.String()
}

func TestPipelineFansLinesToAllParsers(t *testing.T) {
	dir := t.TempDir()
	contents := ldapLog("Geralt") +
		strings.Repeat("=", 20) + "\n" +
		"UserName: vesemir\n" +
		"ComputerName: KAERMORHEN\n" +
		strings.Repeat("=", 20) + "\n" +
		"Enumerated 1 sessions\n"
	writeLog(t, dir, "beacon.log", contents, time.Now())

	result, err := NewParsingPipeline(ToolLdapSearchBof.Factory()).
		Process(NewFileDataSource(dir, "*.log"), 1)
	if err != nil {
		t.Fatal(err)
	}

	if got := len(result.Objects(ObjectTypeLdap)); got != 1 {
		t.Errorf("expected 1 LDAP record, got %v", got)
	}
	sessions := result.Objects(ObjectTypeSession)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session record, got %v", len(sessions))
	}
	if got := sessions[0].GetString("computername"); got != "KAERMORHEN" {
		t.Errorf("computername = %v", got)
	}
}

func TestPipelineNoStreamsIsAnError(t *testing.T) {
	dir := t.TempDir()
	_, err := NewParsingPipeline(ToolLdapSearchBof.Factory()).
		Process(NewFileDataSource(dir, "*.log"), 1)
	if err == nil {
		t.Errorf("an input without any matching files should fail loudly")
	}
}

func TestPipelineParallelMatchesSequential(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for i := 0; i < 8; i++ {
		writeLog(t, dir, fmt.Sprintf("beacon_%d.log", i),
			ldapLog(fmt.Sprintf("user%d", i), fmt.Sprintf("extra%d", i)),
			now.Add(time.Duration(i)*time.Second))
	}

	sequential, err := NewParsingPipeline(ToolLdapSearchBof.Factory()).
		Process(NewFileDataSource(dir, "*.log"), 1)
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := NewParsingPipeline(ToolLdapSearchBof.Factory()).
		Process(NewFileDataSource(dir, "*.log"), 4)
	if err != nil {
		t.Fatal(err)
	}

	if sequential.Total() != 16 || parallel.Total() != sequential.Total() {
		t.Fatalf("sequential found %v, parallel found %v", sequential.Total(), parallel.Total())
	}

	names := make(map[string]bool)
	for _, record := range parallel.Objects(ObjectTypeLdap) {
		names[record.GetString("cn")] = true
	}
	for _, record := range sequential.Objects(ObjectTypeLdap) {
		if !names[record.GetString("cn")] {
			t.Errorf("parallel run missed %v", record.GetString("cn"))
		}
	}
}
