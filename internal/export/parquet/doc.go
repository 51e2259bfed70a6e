// Package parquet flattens event graphs into columnar files, one row
// per particle plus a per-event summary table. The flat rows carry
// the derived kinematics (pt, eta, phi) so downstream SQL never has
// to recompute them.
package parquet
