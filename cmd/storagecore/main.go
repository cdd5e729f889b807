// Command storagecore wires the buffer pool, hash index, and lock manager
// together over a real on-disk data file, demonstrating the path a table
// insert takes through the storage core: acquire the row's lock, fetch or
// allocate its page through the buffer pool, and record it in the hash
// index keyed by an integer column.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/lintang-b-s/storagecore/lib/access"
	"github.com/lintang-b-s/storagecore/lib/buffer"
	"github.com/lintang-b-s/storagecore/lib/concurrency"
	"github.com/lintang-b-s/storagecore/lib/concurrent"
	"github.com/lintang-b-s/storagecore/lib/disk"
	"github.com/lintang-b-s/storagecore/lib/hash"
	"github.com/lintang-b-s/storagecore/lib/wal"
)

const (
	poolSize          = 32
	bucketCapacity    = 64
	maxDirectoryDepth = 9
)

func main() {
	dataPath := flag.String("data", "storagecore.db", "path to the page data file")
	walPath := flag.String("wal", "storagecore.wal", "path to the write-ahead log file")
	flag.Parse()

	dm, err := disk.NewManager(*dataPath)
	if err != nil {
		log.Fatalf("open data file: %v", err)
	}
	defer dm.ShutDown()

	lm, err := wal.NewManager(*walPath)
	if err != nil {
		log.Fatalf("open wal file: %v", err)
	}
	defer lm.ShutDown()

	bpm := buffer.NewBufferPoolManagerInstance(poolSize, 0, 1, dm, lm)

	writerQueue := concurrent.NewWorkerQueue(2)
	defer close(writerQueue)
	bgWriter := buffer.NewBackgroundWriter(bpm, 500*time.Millisecond, writerQueue)
	bgWriter.Start()
	defer bgWriter.Stop()

	index := hash.NewExtendibleHashTable[int, concurrency.RID](bucketCapacity, maxDirectoryDepth)

	txnMgr := concurrency.NewTransactionManager()
	lockMgr := concurrency.NewLockManager(txnMgr)

	txn := txnMgr.Begin(concurrency.RepeatableRead)

	for customerID := 0; customerID < 10; customerID++ {
		page, pageID, err := bpm.NewPage()
		if err != nil {
			log.Fatalf("allocate page for customer %d: %v", customerID, err)
		}
		page.PutInt32(0, int32(customerID))

		rid := concurrency.RID{PageID: pageID, SlotNum: 0}
		if !access.InsertRID(txn, lockMgr, rid) {
			log.Fatalf("customer %d: transaction wounded before insert", customerID)
		}
		index.Insert(customerID, rid)

		bpm.UnpinPage(pageID, true)
	}

	txnMgr.Commit(txn)

	for customerID := 0; customerID < 10; customerID++ {
		rids, ok := index.GetValue(customerID)
		if !ok {
			log.Fatalf("customer %d missing from index", customerID)
		}
		page, err := bpm.FetchPage(rids[0].PageID)
		if err != nil {
			log.Fatalf("fetch page for customer %d: %v", customerID, err)
		}
		fmt.Printf("customer %d -> page %d, stored value %d\n", customerID, rids[0].PageID, page.GetInt32(0))
		bpm.UnpinPage(rids[0].PageID, false)
	}

	if err := bpm.FlushAllPages(); err != nil {
		log.Fatalf("flush all pages: %v", err)
	}
}
