// Package semindex is a client for a semantic search service over an index of
// documents and their content chunks.
//
// A Client is one search session. It owns the search coordinator, the facet
// filter state, the notification channel and the navigable location.
//
//	client, _ := semindex.New(
//	    semindex.WithBaseURL("http://localhost:8000"),
//	    semindex.WithLimit(20),
//	)
//	_ = client.Search().Submit(ctx, "neural networks")
//	for _, r := range client.Search().Results() {
//	    fmt.Println(r.Source.DisplayName(), r.Similarity)
//	}
//
// # Location
//
// Accepted searches write their query into the session location. To reopen a
// saved location, pass it with WithLocation and call Restore on mount:
//
//	client, _ := semindex.New(semindex.WithBaseURL(url), semindex.WithLocation("/?q=rust"))
//	_, _ = client.Search().Restore(ctx)
//
// # Filters
//
// Facet data is fetched once per session and narrowed through the filter state.
// Every search carries the current filter snapshot.
//
//	tags, _ := client.Filters().TagFacets(ctx)
//	client.Filters().SetTags(semindex.NewSelection(tags[0].Tag.ID))
//
// # Shared content cache
//
// Expanded result content can be shared between sessions through Redis:
//
//	client, _ := semindex.New(
//	    semindex.WithBaseURL(url),
//	    semindex.WithRedis([]string{"localhost:6379"}, "", time.Hour),
//	)
package semindex
