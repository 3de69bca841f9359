// Package remote adapts a remote untyped layer into accessor
// implementations.
//
// The remote side exposes accessors as unary gRPC methods described by
// .proto files; methods are invoked dynamically from parsed descriptors,
// so no generated stubs are needed. Opaque payloads never cross the wire:
// the remote layer keeps them and hands out reference handles, which the
// engine passes through untouched like any other opaque value.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/boundary/internal/registry"
)

// ErrClosed is returned by accessor implementations invoked after the
// client's connection was closed.
var ErrClosed = errors.New("remote client closed")

// Handle is a reference to an opaque payload held by the remote layer.
// Two handles are the same value iff their IDs match.
type Handle struct {
	ID string
}

// NewHandle mints a fresh handle. The remote layer normally mints handles
// itself; this is for hosts that create payloads locally and hand them over.
func NewHandle() Handle {
	return Handle{ID: uuid.NewString()}
}

// Client manages a connection to a remote untyped layer.
type Client struct {
	mu    sync.RWMutex
	conn  *grpc.ClientConn
	files map[string]*desc.FileDescriptor
}

// Dial connects to the remote layer at target.
func Dial(target string) (*Client, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return &Client{conn: conn, files: make(map[string]*desc.FileDescriptor)}, nil
}

// Close closes the underlying connection. Accessor implementations built
// from this client fail with ErrClosed on invocations after Close.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// LoadProto parses the given .proto files and registers their descriptors.
func (c *Client) LoadProto(paths ...string) error {
	parser := protoparse.Parser{ImportPaths: []string{"."}}
	fds, err := parser.ParseFiles(paths...)
	if err != nil {
		return fmt.Errorf("parsing proto: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fd := range fds {
		c.files[fd.GetName()] = fd
	}
	return nil
}

// loadDescriptors registers already-parsed descriptors. Used by tests and
// by hosts that parse protos themselves.
func (c *Client) loadDescriptors(fds []*desc.FileDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fd := range fds {
		c.files[fd.GetName()] = fd
	}
}

// Accessor builds an accessor implementation that invokes the remote
// method at methodPath ("package.Service/Method"). Arguments fill the
// request message fields in declaration order; the response unwraps to its
// single field's value, or to a map of field name to value when the
// message has several.
func (c *Client) Accessor(methodPath string) (registry.Impl, error) {
	md, err := c.findMethod(methodPath)
	if err != nil {
		return nil, err
	}
	if md.IsClientStreaming() || md.IsServerStreaming() {
		return nil, fmt.Errorf("method %s is streaming; accessors are unary", methodPath)
	}

	fullPath := methodPath
	if fullPath[0] != '/' {
		fullPath = "/" + fullPath
	}
	inFields := md.GetInputType().GetFields()

	return func(ctx context.Context, args ...any) (any, error) {
		if len(args) != len(inFields) {
			return nil, fmt.Errorf("remote accessor %s takes %d arguments, got %d",
				methodPath, len(inFields), len(args))
		}

		req := dynamic.NewMessage(md.GetInputType())
		for i, fd := range inFields {
			v, err := valueToProto(args[i], fd)
			if err != nil {
				return nil, fmt.Errorf("remote accessor %s argument %d: %w", methodPath, i, err)
			}
			if v != nil {
				req.SetField(fd, v)
			}
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return nil, fmt.Errorf("remote accessor %s: %w", methodPath, ErrClosed)
		}

		resp := dynamic.NewMessage(md.GetOutputType())
		if err := conn.Invoke(ctx, fullPath, req, resp); err != nil {
			return nil, fmt.Errorf("remote accessor %s: %w", methodPath, err)
		}

		return messageToValue(resp), nil
	}, nil
}

func (c *Client) findMethod(path string) (*desc.MethodDescriptor, error) {
	service, method, ok := splitMethodPath(path)
	if !ok {
		return nil, fmt.Errorf("invalid method path %q, expected 'package.Service/Method'", path)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, fd := range c.files {
		svc := fd.FindService(service)
		if svc == nil {
			continue
		}
		if md := svc.FindMethodByName(method); md != nil {
			return md, nil
		}
	}
	return nil, fmt.Errorf("method %q not found (did you load the proto?)", path)
}

func splitMethodPath(path string) (service, method string, ok bool) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:], path[:i] != "" && path[i+1:] != ""
		}
	}
	return "", "", false
}
