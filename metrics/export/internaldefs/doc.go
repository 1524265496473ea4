// Package internaldefs holds the metric names, help strings and bucket
// layout shared by the otel and prometheus exporters.
package internaldefs
