package wrapper

import (
	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
)

// OptionFunc holds a function with local options.
type OptionFunc func(*options) error

// options collects local and global wrapping options.
type options struct {
	*wrapping.Options
	withRecipientKeyID string
	withSignerKeyID    string
}

func getOpts(opt ...wrapping.Option) (*options, error) {
	opts := options{}
	var wrappingOptions []wrapping.Option
	var localOptions []OptionFunc
	for _, o := range opt {
		if o == nil {
			continue
		}
		switch to := o().(type) {
		case wrapping.OptionFunc:
			wrappingOptions = append(wrappingOptions, o)
		case OptionFunc:
			localOptions = append(localOptions, to)
		}
	}

	var err error
	opts.Options, err = wrapping.GetOpts(wrappingOptions...)
	if err != nil {
		return nil, err
	}
	if opts.Options == nil {
		opts.Options = new(wrapping.Options)
	}

	for _, o := range localOptions {
		if o != nil {
			if err := o(&opts); err != nil {
				return nil, err
			}
		}
	}
	return &opts, nil
}

// WithRecipientKeyID sets the registry id of the KEM key that wraps DEKs.
func WithRecipientKeyID(id string) wrapping.Option {
	return func() interface{} {
		return OptionFunc(func(o *options) error {
			o.withRecipientKeyID = id
			return nil
		})
	}
}

// WithSignerKeyID sets the registry id of the signature key that signs
// wrapped DEKs. Empty disables signing.
func WithSignerKeyID(id string) wrapping.Option {
	return func() interface{} {
		return OptionFunc(func(o *options) error {
			o.withSignerKeyID = id
			return nil
		})
	}
}
