package main

import (
	"context"
	"wayfinder-backend/cmd/branchscrape/commands"
	"wayfinder-backend/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext(context.Background())
	commands.ExecuteContext(ctx)
}
