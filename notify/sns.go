package notify

import (
	"context"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/pkg/errors"
)

// SNS subject lines are limited to 100 characters.
const maxSNSSubject = 100

type SNSConfig struct {
	Region   string
	TopicARN string

	// AccessKey and SecretKey are optional; the default AWS credential chain
	// is used when they are empty.
	AccessKey string
	SecretKey string
}

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS publishes notifications to an AWS SNS topic.
type SNS struct {
	client   snsPublisher
	topicARN string
}

func NewSNS(ctx context.Context, cfg SNSConfig) (*SNS, error) {
	if cfg.TopicARN == "" {
		return nil, errors.New("sns: topic arn is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("sns: region is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "sns: load aws config")
	}
	return &SNS{client: sns.NewFromConfig(awsCfg), topicARN: cfg.TopicARN}, nil
}

func (s *SNS) Name() string {
	return "sns"
}

func (s *SNS) Notify(ctx context.Context, subject, body string) error {
	subject = truncateRunes(subject, maxSNSSubject)
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(s.topicARN),
		Subject:   aws.String(subject),
		Message:   aws.String(body),
	})
	if err != nil {
		return errors.Wrap(err, "sns: publish")
	}
	return nil
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
