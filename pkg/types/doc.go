// Package types defines the Model, Record, Adapter and Store contracts and the
// standard errors shared by the cruds storage backends, forms and views.
//
// A Model describes a document shape: a name, an ordered list of typed
// fields and the name of its primary key. A Store hands out one Adapter per
// Model; the Adapter is the only way views touch persisted Records.
package types
