// Package sources implements the asset sources the resolver races:
// a local Badger cache, a Cloudflare R2 bucket, and an HTTP origin.
//
// Each source reports its own eligibility. Eligibility flips are applied
// with SetEligible, which lets a configuration hot-reload take a source
// out of rotation without rebuilding the resolver.
//
// The cache source doubles as a lifecycle component: it opens the Badger
// database during initialization and closes it during shutdown. The R2
// source verifies bucket access during initialization.
package sources
