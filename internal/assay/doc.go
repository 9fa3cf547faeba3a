// Package assay encodes per-assay-group variant filtering policy as
// predicate-tree construction.
//
// Each sequencing assay belongs to one Group from a closed enumeration,
// and each group carries a distinct clinical filtering policy. The
// builders are pure functions from (Group, FilterSettings) to a predicate
// tree: no I/O, no ambient configuration, no mutable state. Calling a
// builder twice with the same inputs yields structurally identical trees.
//
// POLICY DISPATCH (SNV):
//
//	myeloid, hematology, tumwgs, unknown   myeloid family: four-branch OR
//	                                       (germline flag, CEBPA germline
//	                                       rescue, chr1 hotspot window,
//	                                       general evidence with FLT3
//	                                       structural rescue)
//	swea, gmsonco                          evidence and consequence only,
//	                                       no rescue paths
//	solid                                  germline escape on the FILTER
//	                                       tag alone, evidence with
//	                                       TERT/NFKBIE regulatory rescue
//	anything else                          no variant-level filtering
//
// Note "unknown" above: it is a recognized assay group that happens to be
// named unknown, and it files with the myeloid family. It is not the same
// thing as an unrecognized group string.
//
// FAIL-OPEN:
//
// Unrecognized group strings parse to GroupUnrecognized, and every builder
// maps it to the neutral tree. An assembled query for such a group matches
// all of the sample's variants: an unmapped assay shows everything rather
// than silently hiding records. The engine logs a warning when it happens.
//
// The assemblers wrap builder output with the mandatory sample scope.
// A missing sample ID is the one fatal condition in this package.
package assay
