package store

import (
	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Every ledger collection lives under users/{uid}, so a document path alone
// scopes an entity to its owner.
const (
	accountsCollection     = "accounts"
	envelopesCollection    = "envelopes"
	transactionsCollection = "transactions"
	allocationsCollection  = "allocations"
	banksCollection        = "banks"
)

func userCollection(client *firestore.Client, uid, name string) *firestore.CollectionRef {
	return client.Collection("users").Doc(uid).Collection(name)
}

// oldestUnallocatedQuery orders by (postedAt, createdAt, id); it needs the
// composite index fullyAllocated+postedAt+createdAt.
func oldestUnallocatedQuery(client *firestore.Client, uid string) firestore.Query {
	return userCollection(client, uid, transactionsCollection).
		Where("fullyAllocated", "==", false).
		OrderBy("postedAt", firestore.Asc).
		OrderBy("createdAt", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(1)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

func isFailedPrecondition(err error) bool {
	return status.Code(err) == codes.FailedPrecondition
}

func isUnavailable(err error) bool {
	c := status.Code(err)
	return c == codes.Unavailable || c == codes.DeadlineExceeded || c == codes.ResourceExhausted
}
