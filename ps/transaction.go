package ps

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
)

// Transaction is a commit of the underlying repository.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

// Short returns the abbreviated commit id.
func (transaction Transaction) Short() string {
	if len(transaction.Id) > 8 {
		return transaction.Id[:8]
	}
	return transaction.Id
}

func formatAuthor(sig object.Signature) string {
	if sig.Name == "" && sig.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
}

func transactionOf(c *object.Commit) Transaction {
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  formatAuthor(c.Author),
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns HEAD, or the zero Transaction before the first
// commit.
func (persistence *Persistence) LatestTransaction() Transaction {
	persistence.RLock()
	defer persistence.RUnlock()

	commit, err := persistence.commitAt("HEAD")
	if err != nil {
		return Transaction{}
	}
	return transactionOf(commit)
}

// TransactionsSince returns the commits made at or after asof, newest first.
func (persistence *Persistence) TransactionsSince(asof time.Time) ([]Transaction, error) {
	return persistence.log(&git.LogOptions{Since: &asof}, 0)
}

// History returns up to limit commits reachable from HEAD, newest first. A
// limit of zero returns all of them.
func (persistence *Persistence) History(limit int) ([]Transaction, error) {
	return persistence.log(&git.LogOptions{}, limit)
}

func (persistence *Persistence) log(opts *git.LogOptions, limit int) ([]Transaction, error) {
	if err := persistence.ensureInitialized(); err != nil {
		return nil, err
	}
	persistence.RLock()
	defer persistence.RUnlock()

	if _, err := persistence.repo.Head(); err != nil {
		return nil, nil
	}
	cIter, err := persistence.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionOf(c))
		if limit > 0 && len(transactions) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	return transactions, nil
}
