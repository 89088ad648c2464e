package errors

import (
	stderrors "errors"
	"fmt"
)

// WrapIOError wraps a failure to read a source file
func WrapIOError(path string, cause error) *BaseError {
	message := fmt.Sprintf("failed to read '%s'", path)
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return Wrap(IOErrorCode, message, cause).
		WithLocation(SourceLocation{File: path}).
		WithContext("path", path)
}

// WrapFileSystemError wraps file system related errors
func WrapFileSystemError(operation, path string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s file '%s'", operation, path)
	return Wrap(FileSystemErrorCode, message, cause).
		WithContext("operation", operation).
		WithContext("path", path)
}

// WrapTemplateError wraps template processing errors
func WrapTemplateError(templateName, operation string, cause error) *GenerationError {
	return &GenerationError{
		BaseError: Wrap(TemplateErrorCode, fmt.Sprintf("failed to %s template '%s'", operation, templateName), cause),
		Module:    templateName,
		Stage:     operation,
	}
}

// WrapConfigurationError wraps configuration-related errors
func WrapConfigurationError(configType, operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s configuration '%s'", operation, configType)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("config_type", configType).
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration error
func ConfigurationError(configType, message string) *BaseError {
	fullMessage := fmt.Sprintf("configuration error in '%s': %s", configType, message)
	return New(ConfigurationErrorCode, fullMessage).
		WithContext("config_type", configType)
}

// AsConvertError converts any error into a ConvertError, keeping coded errors intact
func AsConvertError(err error, fallback ErrorCode) ConvertError {
	if err == nil {
		return nil
	}
	var ce ConvertError
	if stderrors.As(err, &ce) {
		return ce
	}
	return Wrap(fallback, err.Error(), err)
}

// AddToMultiple appends err to *multi, allocating the collection on first use
func AddToMultiple(multi **MultipleErrors, err error, fallback ErrorCode) {
	if err == nil {
		return
	}
	if *multi == nil {
		*multi = NewMultipleErrors()
	}
	var nested *MultipleErrors
	if stderrors.As(err, &nested) {
		(*multi).Errors = append((*multi).Errors, nested.Errors...)
		return
	}
	(*multi).Add(AsConvertError(err, fallback))
}
