// Package twittex is a client for the Twitter REST and Streaming APIs.
//
// The root package ties three layers together:
//
//   - auth: OAuth1 user-context and OAuth2 application-only request signing.
//   - rest: request builders and a client for the v1.1 REST endpoints.
//   - stream: a pull-based, backpressured consumer for the streaming API's
//     length-delimited frame format.
//
// # Quick start
//
//	session := auth.Session{
//		ConsumerKey:    os.Getenv("TWITTER_CONSUMER_KEY"),
//		ConsumerSecret: os.Getenv("TWITTER_CONSUMER_SECRET"),
//		Token:          os.Getenv("TWITTER_TOKEN"),
//		TokenSecret:    os.Getenv("TWITTER_TOKEN_SECRET"),
//	}
//
//	client, err := twittex.NewClient(session)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Search(ctx, "#golang")
//
// Streaming endpoints hand back a stream.Consumer; the caller controls
// delivery by issuing demand:
//
//	consumer, err := client.Filter("golang")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := consumer.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	consumer.Request(10)
//	for msg := range consumer.Messages() {
//		// process msg
//	}
//
// The stream carries no reconnect policy: when it fails, the consumer's
// Done channel closes and Err reports the terminal reason.
package twittex
