package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fullstorydev/grpcurl"
	"github.com/jhump/protoreflect/grpcreflect"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	defaultGRPCAddr = "localhost:9000"
	defaultHTTPURL  = "http://localhost:8080"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	args := os.Args[2:]
	switch os.Args[1] {
	case "status":
		statusCmd(ctx, args)
	case "health":
		withConn(ctx, func(conn *grpc.ClientConn) { healthCmd(ctx, conn, args) })
	case "services":
		withConn(ctx, func(conn *grpc.ClientConn) { servicesCmd(ctx, conn) })
	case "methods":
		withConn(ctx, func(conn *grpc.ClientConn) { methodsCmd(ctx, conn, args) })
	case "call":
		withConn(ctx, func(conn *grpc.ClientConn) { callCmd(ctx, conn, args) })
	default:
		usage()
		os.Exit(2)
	}
}

func withConn(ctx context.Context, fn func(*grpc.ClientConn)) {
	conn, err := grpcurl.BlockingDial(ctx, "tcp", envOrDefault("CONTAINMENT_GRPC_ADDR", defaultGRPCAddr), insecure.NewCredentials())
	if err != nil {
		fatal("dial", err)
	}
	defer conn.Close()
	fn(conn)
}

func servicesCmd(ctx context.Context, conn *grpc.ClientConn) {
	descSource := reflectionSource(ctx, conn)
	services, err := grpcurl.ListServices(descSource)
	if err != nil {
		fatal("list services", err)
	}

	for _, service := range services {
		fmt.Println(service)
	}
}

func methodsCmd(ctx context.Context, conn *grpc.ClientConn, args []string) {
	if len(args) < 1 {
		fatal("methods", fmt.Errorf("missing service name"))
	}

	descSource := reflectionSource(ctx, conn)
	methods, err := grpcurl.ListMethods(descSource, args[0])
	if err != nil {
		fatal("list methods", err)
	}

	for _, method := range methods {
		fmt.Println(method)
	}
}

func callCmd(ctx context.Context, conn *grpc.ClientConn, args []string) {
	flags := flag.NewFlagSet("call", flag.ExitOnError)
	data := flags.String("data", "", "JSON request body")
	_ = flags.Parse(args)
	remaining := flags.Args()
	if len(remaining) < 1 {
		fatal("call", fmt.Errorf("missing method (service/method)"))
	}

	method := remaining[0]
	descSource := reflectionSource(ctx, conn)

	var reader io.Reader
	if *data != "" {
		reader = strings.NewReader(*data)
	} else if isStdinTerminal() {
		reader = strings.NewReader("{}")
	} else {
		reader = os.Stdin
	}

	parser, formatter, err := grpcurl.RequestParserAndFormatter(grpcurl.FormatJSON, descSource, reader, grpcurl.FormatOptions{})
	if err != nil {
		fatal("parse request", err)
	}

	handler := grpcurl.NewDefaultEventHandler(os.Stdout, descSource, formatter, false)
	if err := grpcurl.InvokeRPC(ctx, descSource, conn, method, nil, handler, parser.Next); err != nil {
		fatal("invoke", err)
	}
}

func reflectionSource(ctx context.Context, conn *grpc.ClientConn) grpcurl.DescriptorSource {
	client := grpcreflect.NewClientAuto(ctx, conn)
	return grpcurl.DescriptorSourceFromServer(ctx, client)
}

func isStdinTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return true
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func usage() {
	fmt.Println("containment-cli <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  status [--json] [zone]")
	fmt.Println("  health [--json] [--service name]")
	fmt.Println("  services")
	fmt.Println("  methods <service>")
	fmt.Println("  call <service/method> --data '{}' (or pipe JSON via stdin)")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  CONTAINMENT_GRPC_ADDR (default " + defaultGRPCAddr + ")")
	fmt.Println("  CONTAINMENT_HTTP_URL  (default " + defaultHTTPURL + ")")
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
