// Package anyctc implements Connectionist Temporal
// Classification (CTC).
// For more information on CTC, see this paper:
// http://www.cs.toronto.edu/~graves/icml_2006.pdf.
//
// Besides the cost function, the package provides a
// prefix-search decoder and a Trainer which plugs CTC
// models into anysgd.
package anyctc
