// Package ld scores linkage disequilibrium between sites and keeps, for each
// site, the sites most correlated with it.
//
// Correlations are r^2 (Pearson or an EM haplotype estimate) or the Hamming
// agreement between two site columns. TopN ranks every site against every
// other one in parallel and returns a Stored index that can be written to and
// read from the tab separated LD file format.
package ld
