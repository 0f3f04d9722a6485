// nbutil is a small command line host for the notebook contents store. It
// speaks directly to the backing MongoDB; it is useful for inspecting and
// fixing up a store outside a running notebook server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gridbook/gridbook/checkpoint"
	"github.com/gridbook/gridbook/contents"
	"github.com/gridbook/gridbook/store"
)

var (
	configFile = flag.String("config", "", "path to a TOML configuration file")
	usage      = `
nbutil <command> <command arguments>

Possible commands:
    ls

    get <path>

    put <path> <local notebook file>

    mv <old path> <new path>

    rm <path>

    checkpoint <path>

    checkpoints <path>
`
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Println(usage)
		return
	}

	config, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalln("config:", err)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(config.StoreURI))
	if err != nil {
		log.Fatalln("connect:", err)
	}
	ctx := context.Background()
	defer client.Disconnect(ctx)

	db := client.Database(databaseName(config.StoreURI))
	blobs := store.NewGridFS(db, config.DocumentCollection)
	checkpoints := checkpoint.NewMongo(db.Collection(config.CheckpointCollection))
	// config.CheckpointHistoryCollection is reserved; nothing reads it yet
	manager := contents.New(blobs, checkpoints)

	switch args[0] {
	case "ls":
		dols(ctx, blobs)
	case "get":
		doget(ctx, manager, arg(args, 1))
	case "put":
		doput(ctx, manager, arg(args, 1), arg(args, 2))
	case "mv":
		domv(ctx, manager, arg(args, 1), arg(args, 2))
	case "rm":
		dorm(ctx, manager, arg(args, 1))
	case "checkpoint":
		docheckpoint(ctx, manager, arg(args, 1))
	case "checkpoints":
		docheckpoints(ctx, manager, arg(args, 1))
	default:
		fmt.Println(usage)
	}
}

func arg(args []string, i int) string {
	if i >= len(args) {
		fmt.Println(usage)
		os.Exit(1)
	}
	return args[i]
}

func dols(ctx context.Context, blobs store.Store) {
	keys, err := blobs.ListKeys(ctx)
	if err != nil {
		log.Fatalln("ls:", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
	for _, key := range keys {
		v, err := blobs.Latest(ctx, key)
		if err != nil {
			fmt.Fprintf(w, "%s\t?\t?\n", key)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%v\n", key, v.Size, v.CreatedAt)
	}
	w.Flush()
}

func doget(ctx context.Context, manager *contents.Manager, path string) {
	model, err := manager.Get(ctx, path, true, "")
	if err != nil {
		log.Fatalln("get:", err)
	}
	out, err := json.MarshalIndent(model.Content, "", " ")
	if err != nil {
		log.Fatalln("get:", err)
	}
	os.Stdout.Write(out)
	fmt.Println()
	if model.Message != "" {
		fmt.Fprintln(os.Stderr, "validation:", model.Message)
	}
}

func doput(ctx context.Context, manager *contents.Manager, path, filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalln("put:", err)
	}
	var content map[string]interface{}
	if err := json.Unmarshal(data, &content); err != nil {
		log.Fatalln("put:", err)
	}
	model, err := manager.Save(ctx, &contents.Model{
		Type:    contents.TypeNotebook,
		Content: content,
	}, path)
	if err != nil {
		log.Fatalln("put:", err)
	}
	fmt.Println("saved", model.Path)
	if model.Message != "" {
		fmt.Fprintln(os.Stderr, "validation:", model.Message)
	}
}

func domv(ctx context.Context, manager *contents.Manager, oldPath, newPath string) {
	if err := manager.Rename(ctx, oldPath, newPath); err != nil {
		log.Fatalln("mv:", err)
	}
}

func dorm(ctx context.Context, manager *contents.Manager, path string) {
	if err := manager.Delete(ctx, path); err != nil {
		log.Fatalln("rm:", err)
	}
}

func docheckpoint(ctx context.Context, manager *contents.Manager, path string) {
	cp, err := manager.CreateCheckpoint(ctx, path)
	if err != nil {
		log.Fatalln("checkpoint:", err)
	}
	fmt.Println("checkpoint", cp.ID, cp.LastModified)
}

func docheckpoints(ctx context.Context, manager *contents.Manager, path string) {
	cps, err := manager.ListCheckpoints(ctx, path)
	if err != nil {
		log.Fatalln("checkpoints:", err)
	}
	w := tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
	for _, cp := range cps {
		fmt.Fprintf(w, "%s\t%v\n", cp.ID, cp.LastModified)
	}
	w.Flush()
}
