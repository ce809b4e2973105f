package main

import (
	"flag"
	"fmt"
	"strings"
)

// tableParts splits "projectId.datasetId.tableId" into its three
// components. config.Validate checks this shape for the server command;
// the migrate command passes TABLE through unchecked, and a value without
// three parts is returned whole as the project with empty dataset and id.
func tableParts(table string) (project, dataset, id string) {
	parts := strings.SplitN(table, ".", 3)
	if len(parts) != 3 {
		return table, "", ""
	}
	return parts[0], parts[1], parts[2]
}

func insertAllEndpoint(table string) string {
	project, dataset, id := tableParts(table)
	return fmt.Sprintf("https://bigquery.googleapis.com/bigquery/v2/projects/%s/datasets/%s/tables/%s/insertAll", project, dataset, id)
}

func tablesPatchEndpoint(table string) string {
	project, dataset, id := tableParts(table)
	return fmt.Sprintf("https://bigquery.googleapis.com/bigquery/v2/projects/%s/datasets/%s/tables/%s", project, dataset, id)
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ExitOnError)
}
