package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/joshp123/containment/internal/server"
)

func healthCmd(ctx context.Context, conn *grpc.ClientConn, args []string) {
	flags := flag.NewFlagSet("health", flag.ExitOnError)
	jsonOutput := flags.Bool("json", false, "print the raw response as JSON")
	service := flags.String("service", server.ServiceName, "health service name (empty for overall)")
	_ = flags.Parse(args)

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: *service})
	if err != nil {
		fatal("health check", err)
	}

	if *jsonOutput {
		data, err := protojson.MarshalOptions{Multiline: true, EmitUnpopulated: true}.Marshal(resp)
		if err != nil {
			fatal("format json", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Println(resp.GetStatus().String())
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		os.Exit(1)
	}
}
