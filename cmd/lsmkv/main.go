// Command lsmkv is a small demo harness for the storage engine: open a
// database directory, run a handful of put/get/del calls, print the
// results, close.
package main

import (
	"fmt"
	"log"
	"os"

	"lsmkv/lsm"
)

func main() {
	dir, err := os.MkdirTemp("", "lsmkv-demo-*")
	if err != nil {
		log.Fatalf("create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	engine, err := lsm.Open(dir, lsm.WithLogger(lsm.NopLogger()))
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer engine.Close()

	for i := uint64(1); i <= 10; i++ {
		if _, err := engine.Put(i, []byte(fmt.Sprintf("value-%d", i))); err != nil {
			log.Fatalf("put %d: %v", i, err)
		}
	}

	for i := uint64(1); i <= 10; i++ {
		value, found, err := engine.Get(i)
		if err != nil {
			log.Fatalf("get %d: %v", i, err)
		}
		fmt.Printf("get(%d) = (%v, %q)\n", i, found, value)
	}

	if _, err := engine.Del(5); err != nil {
		log.Fatalf("del 5: %v", err)
	}
	value, found, err := engine.Get(5)
	if err != nil {
		log.Fatalf("get 5: %v", err)
	}
	fmt.Printf("after del: get(5) = (%v, %q)\n", found, value)
}
