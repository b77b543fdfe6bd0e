// Package collection hosts the driven.Collection implementations and the
// vector math they share.
//
// All shipped backends embed query and record text through an injected
// driven.EmbeddingService and rank by cosine distance, so a score
// computed as 1/(1+distance) always lands in (0,1].
package collection
