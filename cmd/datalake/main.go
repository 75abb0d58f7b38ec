// Command datalake ingests tabular sources into a partitioned columnar data
// lake and manages the Glue crawler that catalogs it.
//
//	datalake ingest --config pipeline.json
//	datalake ingest --path sales.csv --target s3://lake/raw/sales --partition-by year,month
//	datalake validate --config pipeline.json
//	datalake crawler status --name sales-crawler
package main

import (
	"os"
)

func main() {
	a := newApp(os.Stdout, os.Stderr)
	err := newRootCommand(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}
