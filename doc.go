// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rpheap implements a scalable, size-classed memory allocator
// geared towards many goroutines allocating and freeing concurrently.
// Objects below half a page are served from size-classed page-blocks
// cached in a three-tier hierarchy (thread-local, process-global, kernel);
// larger objects are mapped directly. A page-block may be freed by any
// goroutine, not just the one that allocated from it, through a lock-free
// remote-free protocol on each page-block's synchronized word.
package rpheap
