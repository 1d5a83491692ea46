package runtime

import (
	"context"
	"fmt"
	"net/rpc"
	"time"

	"github.com/hashicorp/go-plugin"

	"github.com/DevelApp-ai/PluginJobRunner/internal/executor"
)

// PluginKey is the name executors are dispensed under.
const PluginKey = "executor"

// Handshake must match between the runner and every plugin binary.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "JOBRUNNER_PLUGIN",
	MagicCookieValue: "jobrunner_executor_module",
}

// DescribeArgs selects an executor served by a plugin binary.
type DescribeArgs struct {
	Target string
}

// DescribeReply carries a served executor's metadata.
type DescribeReply struct {
	Namespace   string
	Name        string
	Version     string
	Description string
}

// ExecuteArgs is the wire form of an execution request.
type ExecuteArgs struct {
	Target   string
	JobID    string
	FullName string
	Enqueued time.Time
	Attempt  int
	JobData  string
}

// ExecutorPlugin is the go-plugin definition for executor modules. The
// server side serves Executors; the client side ignores them.
type ExecutorPlugin struct {
	Executors []executor.Executor
}

func (p *ExecutorPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return NewExecutorRPCServer(p.Executors...), nil
}

func (p *ExecutorPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ExecutorRPCClient{client: c}, nil
}

// PluginMap returns the plugin set for a client or a server serving executors.
func PluginMap(executors ...executor.Executor) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginKey: &ExecutorPlugin{Executors: executors},
	}
}

// targetKey is the case-insensitive address plus version of an identity.
func targetKey(id executor.Identity) string {
	if id.Version == nil {
		return id.Key().String()
	}
	return id.Key().String() + "@" + id.Version.String()
}

// ExecutorRPCServer exposes a set of executors over net/rpc.
type ExecutorRPCServer struct {
	executors map[string]executor.Executor
}

func NewExecutorRPCServer(executors ...executor.Executor) *ExecutorRPCServer {
	s := &ExecutorRPCServer{executors: make(map[string]executor.Executor, len(executors))}
	for _, e := range executors {
		s.executors[targetKey(e.Identity())] = e
	}
	return s
}

func (s *ExecutorRPCServer) lookup(target string) (executor.Executor, error) {
	e, ok := s.executors[target]
	if !ok {
		return nil, fmt.Errorf("executor %s is not served by this plugin", target)
	}
	return e, nil
}

func (s *ExecutorRPCServer) Describe(args DescribeArgs, reply *DescribeReply) error {
	e, err := s.lookup(args.Target)
	if err != nil {
		return err
	}
	id := e.Identity()
	*reply = DescribeReply{
		Namespace:   id.Namespace,
		Name:        id.Name,
		Description: e.Description(),
	}
	if id.Version != nil {
		reply.Version = id.Version.String()
	}
	return nil
}

func (s *ExecutorRPCServer) Execute(args ExecuteArgs, reply *executor.Result) (err error) {
	e, err := s.lookup(args.Target)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			*reply = executor.Failed(fmt.Sprintf("executor %s panicked: %v", args.Target, r))
		}
	}()
	ec := &executor.ExecutionContext{
		JobID:    args.JobID,
		FullName: args.FullName,
		Enqueued: args.Enqueued,
		Attempt:  args.Attempt,
	}
	*reply = e.Execute(context.Background(), ec, args.JobData)
	return nil
}

// ExecutorRPCClient is the runner's view of a plugin binary.
type ExecutorRPCClient struct {
	client *rpc.Client
}

// Executor returns a proxy for the executor the plugin serves under id.
func (c *ExecutorRPCClient) Executor(id executor.Identity) (executor.Executor, error) {
	target := targetKey(id)
	var reply DescribeReply
	if err := c.client.Call("Plugin.Describe", DescribeArgs{Target: target}, &reply); err != nil {
		return nil, err
	}
	served, err := executor.NewIdentity(reply.Namespace, reply.Name, reply.Version)
	if err != nil {
		return nil, fmt.Errorf("plugin described %s with a bad identity: %w", target, err)
	}
	return &remoteExecutor{
		client:      c.client,
		target:      target,
		identity:    served,
		description: reply.Description,
	}, nil
}

type remoteExecutor struct {
	client      *rpc.Client
	target      string
	identity    executor.Identity
	description string
}

func (r *remoteExecutor) Identity() executor.Identity { return r.identity }

func (r *remoteExecutor) Description() string { return r.description }

func (r *remoteExecutor) Execute(ctx context.Context, ec *executor.ExecutionContext, jobData string) executor.Result {
	args := ExecuteArgs{Target: r.target, JobData: jobData}
	if ec != nil {
		args.JobID = ec.JobID
		args.FullName = ec.FullName
		args.Enqueued = ec.Enqueued
		args.Attempt = ec.Attempt
	}

	var reply executor.Result
	call := r.client.Go("Plugin.Execute", args, &reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return executor.Failed(fmt.Sprintf("executor %s interrupted: %v", r.target, ctx.Err()))
	case done := <-call.Done:
		if done.Error != nil {
			return executor.Failed(fmt.Sprintf("calling executor %s: %v", r.target, done.Error))
		}
		return reply
	}
}
