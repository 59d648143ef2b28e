// Package remote invokes methods on reflection-enabled gRPC servers
// without generated stubs: service and method descriptors are fetched
// over the reflection API and requests are built as dynamic messages.
package remote

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
)

// Client wraps a gRPC connection with reflection support.
type Client struct {
	conn      *grpc.ClientConn
	refClient *grpcreflect.Client
	target    string
	closed    atomic.Bool
}

// Dial connects to target (host:port, plaintext) and prepares the
// reflection client.
func Dial(ctx context.Context, target string) (*Client, error) {
	conn, err := grpc.Dial(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", target, err)
	}
	refClient := grpcreflect.NewClientV1Alpha(ctx, rpb.NewServerReflectionClient(conn))
	return &Client{
		conn:      conn,
		refClient: refClient,
		target:    target,
	}, nil
}

// Target returns the dialed address.
func (c *Client) Target() string { return c.target }

// Close releases the reflection stream and the connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.refClient.Reset()
	return c.conn.Close()
}

// Services lists the fully-qualified service names the server exposes.
func (c *Client) Services() ([]string, error) {
	names, err := c.refClient.ListServices()
	if err != nil {
		return nil, fmt.Errorf("listing services on %s: %w", c.target, err)
	}
	return names, nil
}

// Methods lists the method names of a service.
func (c *Client) Methods(service string) ([]string, error) {
	svcDesc, err := c.refClient.ResolveService(service)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve service %s: %w", service, err)
	}
	methods := svcDesc.GetMethods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.GetName()
	}
	return names, nil
}

// Invoke makes a unary call. fullMethod is "package.Service/Method";
// fields become the request message, and the response comes back as a
// map. Streaming methods are rejected.
func (c *Client) Invoke(ctx context.Context, fullMethod string, fields map[string]any) (map[string]any, error) {
	methodDesc, err := c.resolveMethod(fullMethod)
	if err != nil {
		return nil, err
	}
	if methodDesc.IsClientStreaming() || methodDesc.IsServerStreaming() {
		return nil, fmt.Errorf("method %s is streaming; only unary methods are supported", fullMethod)
	}

	reqMsg, err := mapToProto(fields, methodDesc.GetInputType())
	if err != nil {
		return nil, fmt.Errorf("request conversion: %w", err)
	}

	respMsg := dynamic.NewMessage(methodDesc.GetOutputType())

	if err := c.conn.Invoke(ctx, "/"+fullMethod, reqMsg, respMsg); err != nil {
		return nil, fmt.Errorf("call failed: %w", err)
	}

	result, err := protoToMap(respMsg)
	if err != nil {
		return nil, fmt.Errorf("response conversion: %w", err)
	}
	return result, nil
}

// resolveMethod resolves "package.Service/Method" to its descriptor.
func (c *Client) resolveMethod(fullMethod string) (*desc.MethodDescriptor, error) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid method format: %s (expected 'service/method')", fullMethod)
	}

	serviceName := parts[0]
	methodName := parts[1]

	svcDesc, err := c.refClient.ResolveService(serviceName)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve service %s: %w", serviceName, err)
	}

	methodDesc := svcDesc.FindMethodByName(methodName)
	if methodDesc == nil {
		return nil, fmt.Errorf("method %s not found in service %s", methodName, serviceName)
	}
	return methodDesc, nil
}
