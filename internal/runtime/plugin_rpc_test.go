package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-plugin"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

func dispenseTestClient(t *testing.T, served ...executor.Executor) *ExecutorRPCClient {
	t.Helper()
	client, _ := plugin.TestPluginRPCConn(t, PluginMap(served...), nil)
	t.Cleanup(func() { client.Close() })

	raw, err := client.Dispense(PluginKey)
	if err != nil {
		t.Fatalf("Dispense error: %v", err)
	}
	c, ok := raw.(*ExecutorRPCClient)
	if !ok {
		t.Fatalf("dispensed %T", raw)
	}
	return c
}

func TestExecutorRPC_RoundTrip(t *testing.T) {
	c := dispenseTestClient(t, newEcho("1.0.0"), newEcho("2.0.0"))

	// Lookup is case-insensitive on the address and exact on the version.
	e, err := c.Executor(executor.MustIdentity("test", "ECHO", "2.0.0"))
	if err != nil {
		t.Fatalf("Executor error: %v", err)
	}
	if got := e.Identity().String(); got != "Test.Echo@2.0.0" {
		t.Errorf("Identity = %s", got)
	}
	if e.Description() != "echoes job data" {
		t.Errorf("Description = %q", e.Description())
	}

	res := e.Execute(context.Background(), &executor.ExecutionContext{JobID: "j1"}, "job")
	if !res.Success || res.JobData != "j1" {
		t.Errorf("Execute = %+v", res)
	}
}

func TestExecutorRPC_UnknownTarget(t *testing.T) {
	c := dispenseTestClient(t, newEcho("1.0.0"))
	if _, err := c.Executor(executor.MustIdentity("Test", "Echo", "9.9.9")); err == nil {
		t.Fatal("expected error for unserved version")
	}
}

func TestExecutorRPC_PanicBecomesFailure(t *testing.T) {
	c := dispenseTestClient(t, newEcho("1.0.0"))
	e, err := c.Executor(executor.MustIdentity("Test", "Echo", "1.0.0"))
	if err != nil {
		t.Fatal(err)
	}
	res := e.Execute(context.Background(), nil, "panic")
	if res.Success || !strings.Contains(res.Error, "panicked") {
		t.Errorf("Execute = %+v", res)
	}
}
