package main

import (
	storageengine "DaemonDB/storage_engine"
	executor "DaemonDB/query_executor"
	codegen "DaemonDB/query_parser/code-generator"
	lex "DaemonDB/query_parser/lexer"
	"DaemonDB/query_parser/parser"
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func main() {
	dbRoot := flag.String("db", "./data", "database root directory")
	poolSize := flag.Int("pool-size", 100, "buffer pool capacity in frames")
	shards := flag.Int("shards", 4, "number of buffer pool shards")
	flag.Parse()

	se, err := storageengine.NewStorageEngine(*dbRoot)
	if err != nil {
		log.Fatalf("failed to initialize storage engine: %v", err)
	}
	se.PoolSize = *poolSize
	se.PoolShards = *shards

	fmt.Printf("DaemonDB starting: db=%s pool-size=%d shards=%d\n", *dbRoot, *poolSize, *shards)

	vm := executor.NewVM(se)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("db> ")

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			break
		}
		if strings.EqualFold(line, "\\stats") {
			printStats(se)
			continue
		}

		if err := runStatement(vm, line); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// printStats reports buffer pool occupancy and the age of the last
// checkpoint, the REPL's one introspection meta-command.
func printStats(se *storageengine.StorageEngine) {
	if se.BufferPool != nil {
		stats := se.BufferPool.GetStats()
		fmt.Printf("buffer pool: %d/%d pages, %d pinned, %d dirty\n",
			stats.TotalPages, stats.Capacity, stats.PinnedPages, stats.DirtyPages)
	}
	if se.CheckpointManager == nil {
		return
	}
	checkpoint, err := se.CheckpointManager.LoadCheckpoint()
	if err != nil {
		fmt.Printf("checkpoint: unavailable (%v)\n", err)
		return
	}
	if checkpoint.LSN == 0 {
		fmt.Println("checkpoint: none saved yet")
		return
	}
	age := humanize.Time(time.Unix(checkpoint.Timestamp, 0))
	fmt.Printf("checkpoint: LSN=%d database=%s saved %s\n", checkpoint.LSN, checkpoint.Database, age)
}

// runStatement lexes, parses, compiles and executes a single line of
// input. A panic anywhere in the lexer/parser (several of its
// productions still signal malformed input with panic rather than an
// error return) is recovered and reported like any other error, so a
// bad statement never takes down the REPL.
func runStatement(vm *executor.VM, query string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse error: %v", r)
		}
	}()

	l := lex.New(query)
	p := parser.New(l)
	stmt, err := p.ParseStatement()
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	instructions, err := codegen.EmitBytecode(stmt)
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	return vm.Execute(instructions)
}
