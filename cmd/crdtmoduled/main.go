// Command crdtmoduled is a small demonstration daemon wiring every
// layer of the module together over a chosen storage backend: host ->
// binding -> changesync -> shadowindex -> command.Dispatcher.
// It speaks a plain line-oriented protocol on stdin/stdout rather than
// a real Redis wire format, since this module only extends a host's
// command surface (spec.md §1) and does not itself implement that
// host's network protocol. Grounded on luvjson/crdtserver's root
// main.go: flag-parsed backend selection, signal-driven shutdown.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	goredis "github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"automergekv/binding"
	"automergekv/changesync"
	"automergekv/command"
	"automergekv/host"
	"automergekv/shadowindex"
)

func main() {
	backend := flag.String("backend", "memory", "storage backend: memory, badger, redis")
	badgerPath := flag.String("badger-path", "./crdtmoduled-data", "BadgerDB data directory (backend=badger)")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address (backend=redis)")
	redisPassword := flag.String("redis-password", "", "Redis password (backend=redis)")
	redisDB := flag.Int("redis-db", 0, "Redis database number (backend=redis)")
	keyPrefix := flag.String("key-prefix", "crdtkv", "Redis key namespace prefix (backend=redis)")
	nodeID := flag.Int64("node-id", 1, "snowflake node id for shadow-index projection tokens")
	replicateStream := flag.String("replicate-stream", "", "Redis address to additionally replicate committed changes to via Redis Streams (optional)")
	mongoURI := flag.String("mongo-uri", "", "Mongo connection URI to store Structured-format shadow projections in, instead of the host (optional)")
	mongoDatabase := flag.String("mongo-database", "crdtmoduled", "Mongo database name (mongo-uri)")
	mongoCollection := flag.String("mongo-collection", "shadow_projections", "Mongo collection name (mongo-uri)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, closer, err := openHost(ctx, *backend, *badgerPath, *redisAddr, *redisPassword, *redisDB, *keyPrefix)
	if err != nil {
		log.Fatalf("crdtmoduled: %v", err)
	}
	defer closer()

	b := binding.New(h)
	sync := changesync.New(b)
	idx, err := shadowindex.New(ctx, h, *nodeID)
	if err != nil {
		log.Fatalf("crdtmoduled: %v", err)
	}

	var replicator *changesync.Replicator
	if *replicateStream != "" {
		client := goredis.NewClient(&goredis.Options{Addr: *replicateStream})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("crdtmoduled: connect to replicate-stream %q: %v", *replicateStream, err)
		}
		defer client.Close()
		replicator = changesync.NewReplicator(client, sync)
		log.Printf("crdtmoduled: replicating changes through Redis Streams at %s", *replicateStream)
	}

	if *mongoURI != "" {
		mongoClient, err := mongo.Connect(options.Client().ApplyURI(*mongoURI))
		if err != nil {
			log.Fatalf("crdtmoduled: connect to mongo %q: %v", *mongoURI, err)
		}
		defer mongoClient.Disconnect(ctx)
		coll := mongoClient.Database(*mongoDatabase).Collection(*mongoCollection)
		idx.SetStructuredSink(shadowindex.NewMongoStructuredSink(coll))
		log.Printf("crdtmoduled: Structured shadow projections stored in mongo %s/%s", *mongoDatabase, *mongoCollection)
	}

	dispatcher := command.New(b, sync, idx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go runREPL(ctx, dispatcher, b, replicator, done)

	select {
	case <-quit:
		log.Print("crdtmoduled: shutting down")
		cancel()
	case <-done:
	}
}

func openHost(ctx context.Context, backend, badgerPath, redisAddr, redisPassword string, redisDB int, keyPrefix string) (host.Host, func(), error) {
	switch backend {
	case "memory":
		return host.NewMemory(), func() {}, nil
	case "badger":
		b, err := host.NewBadger(badgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger: %w", err)
		}
		return b, func() { b.Close() }, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		return host.NewRedis(client, keyPrefix), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want memory, badger, or redis)", backend)
	}
}

// runREPL reads one command per line from stdin ("NAME arg1 arg2 ...")
// and writes its rendered reply to stdout, until stdin closes or ctx is
// done. REPLICATE.PUSH/REPLICATE.PULL are handled here directly rather
// than through Dispatcher, since the Redis Streams transport they drive
// is a deployment-optional helper outside the module's own command
// surface (changesync.Replicator's doc comment).
func runREPL(ctx context.Context, d *command.Dispatcher, b *binding.Binding, replicator *changesync.Replicator, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		name, args := fields[0], fields[1:]

		if replicator != nil {
			switch strings.ToUpper(name) {
			case "REPLICATE.PUSH":
				handleReplicatePush(ctx, b, replicator, args)
				continue
			case "REPLICATE.PULL":
				handleReplicatePull(ctx, replicator, args)
				continue
			}
		}

		reply, err := d.Dispatch(ctx, name, args)
		if err != nil {
			fmt.Printf("ERR %v\n", err)
			continue
		}
		fmt.Println(command.FormatReply(reply))
	}
}

// handleReplicatePush publishes key's full change history to its Redis
// Stream ("REPLICATE.PUSH key").
func handleReplicatePush(ctx context.Context, b *binding.Binding, r *changesync.Replicator, args []string) {
	if len(args) != 1 {
		fmt.Println("ERR REPLICATE.PUSH requires 1 argument(s), got", len(args))
		return
	}
	e, err := b.Get(ctx, args[0])
	if err != nil {
		fmt.Printf("ERR %v\n", err)
		return
	}
	if err := r.PublishChanges(ctx, args[0], e.Doc.Changes(nil)); err != nil {
		fmt.Printf("ERR %v\n", err)
		return
	}
	fmt.Println("OK")
}

// handleReplicatePull pulls and merges everything newer than lastID from
// key's Redis Stream ("REPLICATE.PULL key lastID"), printing the new
// cursor to pass back in on the next call.
func handleReplicatePull(ctx context.Context, r *changesync.Replicator, args []string) {
	if len(args) != 2 {
		fmt.Println("ERR REPLICATE.PULL requires 2 argument(s), got", len(args))
		return
	}
	newLastID, applied, err := r.Pull(ctx, args[0], args[1])
	if err != nil {
		fmt.Printf("ERR %v\n", err)
		return
	}
	fmt.Printf("%s %d\n", newLastID, applied)
}
